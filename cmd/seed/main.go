package main

import (
	"log"

	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/db"
)

func main() {
	// Load configuration
	cfg := config.New()

	// NewDB migrates the schema before returning
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
