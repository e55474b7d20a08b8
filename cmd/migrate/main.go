// Command migrate applies or reverts database migrations.
//
//	migrate up
//	migrate down [steps]
package main

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/jellyjess/nail-salon/internal/config"
	"github.com/jellyjess/nail-salon/internal/database"
	"github.com/jellyjess/nail-salon/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate up | down [steps]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, true)

	switch os.Args[1] {
	case "up":
		err = database.Migrate(dsn, log)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps < 1 {
				log.Fatal("steps must be a positive integer", zap.String("arg", os.Args[2]))
			}
		}
		err = database.Rollback(dsn, steps, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
}
