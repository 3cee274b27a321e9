// Command migrate manages the flock schema and audits the denormalized tweet
// counters against their edge tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"flock/internal/config"
	"flock/internal/database"

	"gorm.io/gorm"
)

const usage = `usage: migrate <command> [args]

commands:
  up            apply pending SQL migrations
  auto          run GORM AutoMigrate for the flock models
  down VERSION  roll back one SQL migration
  status        show the schema plan, pending migrations and table sizes
  check         list tweets whose like/retweet/reply counters drifted
  repair        recompute drifted counters from the edge tables`

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     up,
	"auto":   auto,
	"down":   down,
	"status": status,
	"check":  check,
	"repair": repair,
}

func main() {
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := cmd(context.Background(), db, cfg, flag.Args()[1:]); err != nil {
		log.Fatalf("❌ %s: %v", flag.Arg(0), err)
	}
}

func up(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return err
	}
	log.Println("✓ SQL migrations applied")
	return nil
}

func auto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return err
	}
	log.Printf("✓ AutoMigrate applied to %d models", len(database.PersistentModels()))
	return nil
}

func down(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("down needs exactly one VERSION")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return err
	}
	log.Printf("✓ rolled back migration %06d", version)
	return nil
}

func status(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	st, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return err
	}
	log.Printf("mode=%s env=%s sql=%t auto=%t applied=%d pending=%d",
		st.Plan.Mode, st.Plan.Env, st.Plan.SQL, st.Plan.Auto, len(st.AppliedVersions), len(st.PendingMigrations))
	if st.HistoryErr != nil {
		log.Printf("⚠️  %v", st.HistoryErr)
	}
	for _, m := range st.PendingMigrations {
		log.Printf("  pending %s", m.String())
	}
	for _, tc := range st.Tables {
		log.Printf("  %-20s %d rows", tc.Table, tc.Rows)
	}
	return nil
}

func check(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	drift, err := database.CheckCounters(ctx, db)
	if err != nil {
		return err
	}
	if len(drift) == 0 {
		log.Println("✓ tweet counters match their edge tables")
		return nil
	}
	for _, d := range drift {
		log.Printf("  %s", d)
	}
	return fmt.Errorf("%d counters drifted; run `migrate repair`", len(drift))
}

func repair(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
	fixed, err := database.RepairCounters(ctx, db)
	if err != nil {
		return err
	}
	for column, n := range fixed {
		log.Printf("✓ %s: %d tweets updated", column, n)
	}
	return nil
}
