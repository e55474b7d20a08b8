package config

// Redis backs the response cache and the distributed rate limiter. Both
// degrade to pass-through (cache) or in-process (rate limit) behaviour when
// the server cannot be reached at startup.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings. Addr is already resolved from
// REDIS_ADDR or REDIS_HOST and REDIS_PORT.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

func redisAddr(addr, host, port string) string {
	if host != "" && port != "" {
		return host + ":" + port
	}
	if addr == "" {
		return "localhost:6379"
	}
	return addr
}

// NewRedisClient builds a client from cfg. It returns nil when the server
// does not answer a ping within two seconds.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
