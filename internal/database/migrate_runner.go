package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"flock/internal/middleware"

	"gorm.io/gorm"
)

// MigrationLog is one row of the applied-migration history. Checksum is the
// hash of the up script at apply time; rows written before checksums existed
// leave it empty.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	Checksum  string    `gorm:"size:64"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationLog) TableName() string {
	return "migration_logs"
}

// MigrationStore reads and writes the migration history.
type MigrationStore interface {
	History(ctx context.Context) ([]MigrationLog, error)
	Apply(ctx context.Context, m Migration) error
	Revert(ctx context.Context, m Migration) error
}

type migrationStore struct {
	db *gorm.DB
}

func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

// History returns applied migrations oldest first. A database that never ran
// a migration has an empty history rather than an error.
func (s *migrationStore) History(ctx context.Context) ([]MigrationLog, error) {
	var logs []MigrationLog
	err := s.db.WithContext(ctx).Order("version ASC").Find(&logs).Error
	switch {
	case err == nil:
		return logs, nil
	case errors.Is(err, gorm.ErrRecordNotFound), isMissingTableError(err):
		return nil, nil
	default:
		return nil, fmt.Errorf("read migration history: %w", err)
	}
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

// Apply runs the up script and records it in one transaction.
func (s *migrationStore) Apply(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", m.String(), err)
		}
		row := MigrationLog{Version: m.Version, Name: m.Name, Checksum: m.Checksum()}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("record %s: %w", m.String(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration applied", slog.String("migration", m.String()))
	return nil
}

// Revert runs the down script and forgets the version in one transaction.
func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", m.String(), err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&MigrationLog{}).Error; err != nil {
			return fmt.Errorf("forget %s: %w", m.String(), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.String("migration", m.String()))
	return nil
}

// pendingMigrations lists registered migrations missing from history.
func pendingMigrations(history []MigrationLog, registered []Migration) []Migration {
	done := make(map[int]bool, len(history))
	for _, h := range history {
		done[h.Version] = true
	}
	var out []Migration
	for _, m := range registered {
		if !done[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// verifyHistory fails when the database ran a version this build does not
// know, or when a known script changed after it was applied.
func verifyHistory(history []MigrationLog, registered []Migration) error {
	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}

	var unknown, edited []string
	for _, h := range history {
		m, ok := byVersion[h.Version]
		if !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", h.Version))
			continue
		}
		if h.Checksum != "" && h.Checksum != m.Checksum() {
			edited = append(edited, m.String())
		}
	}
	sort.Strings(unknown)

	var errs []error
	if len(unknown) > 0 {
		errs = append(errs, fmt.Errorf("migration_logs has versions this build does not ship: %s (roll back with the build that added them or reset the development database)",
			strings.Join(unknown, ", ")))
	}
	if len(edited) > 0 {
		errs = append(errs, fmt.Errorf("applied migrations were edited afterwards: %s (add a new migration instead)",
			strings.Join(edited, ", ")))
	}
	return errors.Join(errs...)
}

// RunMigrations creates the history table when needed, checks the history
// against the embedded scripts and applies whatever is pending.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure migration_logs: %w", err)
	}

	store := NewMigrationStore(db)
	history, err := store.History(ctx)
	if err != nil {
		return err
	}
	if err := verifyHistory(history, GetMigrations()); err != nil {
		return err
	}

	pending := pendingMigrations(history, GetMigrations())
	if len(pending) == 0 {
		middleware.Logger.Debug("Schema up to date", slog.Int("applied", len(history)))
		return nil
	}
	for _, m := range pending {
		if err := store.Apply(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// RollbackMigration reverts version, which must be the newest applied one.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	history, err := store.History(ctx)
	if err != nil {
		return err
	}
	applied := false
	for _, h := range history {
		applied = applied || h.Version == version
	}
	if !applied {
		return fmt.Errorf("migration %s has not been applied", m.String())
	}
	if newest := history[len(history)-1].Version; newest != version {
		return fmt.Errorf("migration %06d is newer than %s; roll it back first", newest, m.String())
	}
	return store.Revert(ctx, *m)
}
