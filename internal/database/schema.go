package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"flock/internal/config"
	"flock/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a config: embedded SQL
// migrations, gorm AutoMigrate of the flock models, or both.
type SchemaPlan struct {
	Mode string
	Env  string
	SQL  bool
	Auto bool
}

// TableCount is the row count of one flock table.
type TableCount struct {
	Table string
	Rows  int64
}

// SchemaStatus reports the plan, migration progress and table sizes.
// HistoryErr is what RunMigrations would refuse on, if anything.
type SchemaStatus struct {
	Plan              SchemaPlan
	AppliedVersions   []int
	PendingMigrations []Migration
	HistoryErr        error
	Tables            []TableCount
}

// PlanSchema resolves DB_SCHEMA_MODE against APP_ENV. AutoMigrate never runs
// in production or staging unless DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Env:  cfg.Env,
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch env := strings.ToLower(strings.TrimSpace(cfg.Env)); {
	case plan.Mode == SchemaModeSQL:
		plan.SQL = true
	case plan.Mode == SchemaModeAuto:
		if sharedEnv(env) && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.Auto = true
	case plan.Mode == SchemaModeHybrid:
		plan.SQL = true
		plan.Auto = !sharedEnv(env)
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

func sharedEnv(env string) bool {
	switch env {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// Apply runs the plan against db.
func (p SchemaPlan) Apply(ctx context.Context, db *gorm.DB) error {
	if p.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if p.Auto {
		middleware.Logger.Info("Running GORM AutoMigrate",
			slog.String("mode", p.Mode),
			slog.String("env", p.Env),
			slog.Int("models", len(PersistentModels())),
		)
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// ApplySchema plans and applies the schema for cfg.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}
	return plan.Apply(ctx, db)
}

// GetSchemaStatus reports pending migrations and the size of every flock
// table without changing anything. Missing tables count as zero rows.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{Plan: plan}

	history, err := NewMigrationStore(db).History(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range history {
		status.AppliedVersions = append(status.AppliedVersions, h.Version)
	}
	status.PendingMigrations = pendingMigrations(history, GetMigrations())
	status.HistoryErr = verifyHistory(history, GetMigrations())

	migrator := db.WithContext(ctx).Migrator()
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse %T: %w", model, err)
		}
		tc := TableCount{Table: stmt.Schema.Table}
		if migrator.HasTable(model) {
			if err := db.WithContext(ctx).Model(model).Count(&tc.Rows).Error; err != nil {
				return nil, fmt.Errorf("count %s: %w", tc.Table, err)
			}
		}
		status.Tables = append(status.Tables, tc)
	}
	return status, nil
}
