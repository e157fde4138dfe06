package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/AchilleasB/kinderopvang/incident-service/internal/adapters/repository/migrations"
	"github.com/AchilleasB/kinderopvang/incident-service/internal/observability"
)

const usage = "usage: migrate [up|down|version]"

func main() {
	logger := observability.NewLogger(os.Stderr, os.Getenv("LOG_LEVEL"))

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		logger.Error("DB_CONNECTION_STRING environment variable is required")
		os.Exit(1)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	switch cmd {
	case "up":
		err = migrations.MigrateUp(db)
	case "down":
		err = migrations.MigrateDown(db)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = migrations.Version(db)
		if err == nil {
			fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration command failed", "command", cmd, "error", err)
		os.Exit(1)
	}
	logger.Info("migration command finished", "command", cmd)
}
