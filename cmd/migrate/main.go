package main

import (
	"flag"
	"fmt"
	"log"

	"helmetwatch/internal/config"
	"helmetwatch/internal/logger"
	"helmetwatch/internal/repository/sqlite"
	"helmetwatch/internal/service/storage"
)

func main() {
	cfg := config.Load()

	violationsDir := flag.String("violations", cfg.ViolationDirectory, "Directory containing violator crops")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	camera := flag.String("camera", "0", "Camera source recorded for indexed crops")
	flag.Parse()

	fmt.Printf("Indexing violator crops from %s into database %s\n", *violationsDir, *dbPath)

	lg, err := logger.New(cfg.LogDirectory, nil, nil)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Close()

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewViolationRepository(db)
	result, err := storage.IndexDirectory(*violationsDir, *camera, repo, lg)
	if err != nil {
		log.Fatalf("Failed to index violations: %v", err)
	}

	fmt.Printf("✅ Indexed %d new violation(s), %d already known\n", result.Added, result.Existing)
	if result.Skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (not violator crops or unreadable)\n", result.Skipped)
	}

	stats, err := repo.Stats()
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total violations: %d\n", stats.Total)
		fmt.Printf("   Unreviewed: %d\n", stats.Unreviewed)
		fmt.Printf("   Per camera:\n")
		for camera, count := range stats.PerCamera {
			fmt.Printf("      - %s: %d violations\n", camera, count)
		}
	}
}
