package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/umstimetable/timetable-api/config"
	"github.com/umstimetable/timetable-api/pkg/db"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back all migrations instead of applying them")
	path := flag.String("path", "file://migrations", "migrations source URL")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Database.HistoryEnabled() {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required to run migrations")
		os.Exit(1)
	}

	// Initialize logger
	err = logger.Initialize(logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Server.AppEnv,
		ServiceName: "timetable-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	dir := db.Up
	if *down {
		dir = db.Down
	}

	logger.Info("Starting database migrations",
		zap.String("database", maskDatabaseURL(cfg.Database.URL)),
		zap.String("direction", string(dir)))

	pool := db.PoolConfig{URL: cfg.Database.URL, CACertPath: cfg.Database.CACertPath}
	if err := db.Migrate(pool, *path, dir); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Database migrations completed successfully")
}

// maskDatabaseURL hides the password in a database URL for logging
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.Redacted()
}
