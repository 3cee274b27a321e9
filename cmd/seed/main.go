// Command main runs the demo data seeder for Flock.
package main

import (
	"context"
	"flag"
	"log"

	"flock/internal/config"
	"flock/internal/database"
	"flock/internal/seed"
)

func main() {
	scenarioPath := flag.String("scenario", "", "YAML scenario file (defaults are used when empty)")
	numUsers := flag.Int("users", 0, "Override the scenario user count")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	sc := seed.DefaultScenario()
	if *scenarioPath != "" {
		loaded, err := seed.LoadScenario(*scenarioPath)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		sc = loaded
	}
	if *numUsers > 0 {
		sc.Users = *numUsers
	}
	log.Printf("Target: %d users, %d tweets each, clean=%v\n", sc.Users, sc.TweetsPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.NewFactory(*randSeed))

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(ctx, sc); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Printf("📧 All test users have the password: %s", sc.Password)
}
