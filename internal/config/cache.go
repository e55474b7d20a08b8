package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache in front of the
// public catalog reads (services, gallery, products). Entries are grouped
// per catalog so an admin write can drop exactly the group it touched.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
