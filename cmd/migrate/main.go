package main

import (
	"context"
	"flag"
	"fmt"

	"cartrack-backend/internal/config"
	"cartrack-backend/internal/database"
	"cartrack-backend/internal/logger"

	"go.uber.org/zap"
)

func main() {
	seed := flag.Bool("seed", false, "also create the demo users and company")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, "console", "cartrack-migrate")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, log); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	if *seed || cfg.SeedDemoData {
		if err := database.SeedDemoData(context.Background(), db, log); err != nil {
			log.Fatal("Seeding failed", zap.Error(err))
		}
		fmt.Println("\n📧 Demo login credentials:")
		fmt.Println("  washer@cartrack.local / user123 (user)")
		fmt.Println("  admin@cartrack.local / admin123 (admin)")
	}

	log.Info("Migration completed successfully!")
}
