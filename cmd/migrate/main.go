package main

import (
	"database/sql"
	"flag"
	"log"

	"carehub-backend/internal/config"
	"carehub-backend/internal/logger"
	"carehub-backend/internal/migrations"

	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	direction := flag.String("direction", "up", "Migration direction: up, down or steps")
	steps := flag.Int("steps", 0, "Number of steps for -direction=steps (negative rolls back)")
	force := flag.Int("force", -1, "Force the schema version and clear the dirty flag")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	m, err := migrations.New(db)
	if err != nil {
		log.Fatalf("Failed to prepare migrations: %v", err)
	}
	defer m.Close()

	switch {
	case *force >= 0:
		err = m.Force(*force)
	case *direction == "up":
		err = m.Up()
	case *direction == "down":
		err = m.Down()
	case *direction == "steps":
		err = m.Steps(*steps)
	default:
		log.Fatalf("Unknown direction %q", *direction)
	}
	if err != nil {
		logger.Error("Migration failed", "error", err)
		log.Fatalf("Migration failed: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	logger.Info("Schema version", "version", version, "dirty", dirty)
}
