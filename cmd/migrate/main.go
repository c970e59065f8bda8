package main

import (
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		migrationsPath = flag.String("migrations", "./migrations", "path to migration files")
		databaseURL    = flag.String("database", "sqlite3://./data/sentinel.db", "database URL")
	)
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		log.Fatal("Usage: migrate [-migrations path] [-database url] <up|down|version>")
	}

	m, err := migrate.New("file://"+*migrationsPath, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}

	switch command {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("An error occurred while migrating up: %v", err)
		}
		log.Println("Migrations applied successfully.")
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("An error occurred while migrating down: %v", err)
		}
		log.Println("Migrations rolled back successfully.")
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to read migration version: %v", err)
		}
		log.Printf("Current version: %d (dirty: %v)", v, dirty)
	default:
		log.Fatalf("Unknown command: %s. Use `up`, `down` or `version`.", command)
	}
}
