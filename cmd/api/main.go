package main

import (
	"fmt"
	"log"
	"os"

	"github.com/kurihiro0119/github-profile-miner/internal/api"
	"github.com/kurihiro0119/github-profile-miner/internal/config"
	"github.com/kurihiro0119/github-profile-miner/internal/storage"
	"github.com/kurihiro0119/github-profile-miner/internal/storage/postgres"
	"github.com/kurihiro0119/github-profile-miner/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL storage: %v", err)
		}
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite storage: %v", err)
		}
	}
	defer store.Close()

	// Setup routes
	router := api.SetupRouter(store)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	fmt.Printf("Starting run history API on %s\n", addr)
	fmt.Printf("Storage type: %s\n", cfg.StorageType)

	if err := router.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		os.Exit(1)
	}
}
