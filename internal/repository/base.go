// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"flock/internal/database"
	"flock/internal/models"
	"flock/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

func readDB(primary *gorm.DB) *gorm.DB {
	if database.ReadDB != nil {
		return database.ReadDB
	}
	return primary
}

// base carries the handle a repository works against and the table label its
// query metrics and error logs use. Inside a transaction reads must stay on the
// transaction, so the replica is only used outside one.
type base struct {
	db    *gorm.DB
	table string
	inTx  bool
}

func newBase(db *gorm.DB, table string) base {
	return base{db: db, table: table}
}

func (b base) reader(ctx context.Context) *gorm.DB {
	if b.inTx {
		return b.db.WithContext(ctx)
	}
	return readDB(b.db).WithContext(ctx)
}

func (b base) writer(ctx context.Context) *gorm.DB {
	return b.db.WithContext(ctx)
}

func (b base) bind(tx *gorm.DB) base {
	return base{db: tx, table: b.table, inTx: true}
}

// track starts a latency sample for op; use as defer r.track("op")().
func (b base) track(op string) func() {
	return observability.TrackQuery(op, b.table)
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// fail wraps a driver error as an internal AppError and logs it. AppErrors
// pass through untouched.
func (b base) fail(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	observability.LogRepoError(ctx, b.table, op, err)
	return models.NewInternalError(err)
}

// lookup is fail for single-row reads: a missing row becomes NotFound.
func (b base) lookup(ctx context.Context, op string, err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return b.fail(ctx, op, err)
}
