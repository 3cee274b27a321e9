package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"flock/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestGetReadDB_FallsBackToPrimary(t *testing.T) {
	prevDB, prevRead := DB, ReadDB
	t.Cleanup(func() { DB, ReadDB = prevDB, prevRead })

	primary, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	DB, ReadDB = primary, nil
	assert.Same(t, primary, GetReadDB())

	replica, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	ReadDB = replica
	assert.Same(t, replica, GetReadDB())
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("db", "5432", "u", "p", "flock", "")
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=flock sslmode=disable", dsn)
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantSQL  bool
		wantAuto bool
		wantErr  bool
	}{
		{"hybrid development", config.Config{Env: "development"}, true, true, false},
		{"hybrid production", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false},
		{"hybrid staging", config.Config{Env: "Staging"}, true, false, false},
		{"sql only", config.Config{Env: "development", DBSchemaMode: "sql"}, true, false, false},
		{"auto in prod refused", config.Config{Env: "prod", DBSchemaMode: "auto"}, false, false, true},
		{"auto in prod allowed", config.Config{Env: "prod", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown mode", config.Config{Env: "test", DBSchemaMode: "yolo"}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			plan, err := PlanSchema(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.SQL)
			assert.Equal(t, tt.wantAuto, plan.Auto)
		})
	}
}

func TestMigrationsRegistered(t *testing.T) {
	all := GetMigrations()
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "000001_init", all[0].String())
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(9999))
}

func TestVerifyHistory(t *testing.T) {
	registered := []Migration{{Version: 1, Name: "init", UpScript: "CREATE TABLE a (id INT);"}}
	sum := registered[0].Checksum()

	assert.NoError(t, verifyHistory(nil, registered))
	assert.NoError(t, verifyHistory([]MigrationLog{{Version: 1, Checksum: sum}}, registered))
	assert.NoError(t, verifyHistory([]MigrationLog{{Version: 1}}, registered), "rows without a checksum are trusted")
	assert.ErrorContains(t, verifyHistory([]MigrationLog{{Version: 1}, {Version: 7}}, registered), "000007")
	assert.ErrorContains(t, verifyHistory([]MigrationLog{{Version: 1, Checksum: "stale"}}, registered), "000001_init")
}

func TestPendingMigrations(t *testing.T) {
	registered := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}
	pending := pendingMigrations([]MigrationLog{{Version: 1}, {Version: 3}}, registered)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestCustomGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(nil, 0)
	switched := l.LogMode(4).(*CustomGormLogger)
	assert.EqualValues(t, 4, switched.Config.LogLevel)
	assert.EqualValues(t, 0, l.Config.LogLevel)
	assert.Equal(t, 200*time.Millisecond, l.Config.SlowThreshold)
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("SELECT 2;")},
		"m/000002_second.down.sql": {Data: []byte("SELECT -2;")},
		"m/000001_first.up.sql":    {Data: []byte("SELECT 1;")},
		"m/000001_first.down.sql":  {Data: []byte("SELECT -1;")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	loaded, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, 1, loaded[0].Version)
	assert.Equal(t, "first", loaded[0].Name)
	assert.Equal(t, "SELECT -2;", loaded[1].DownScript)
}

func TestLoadMigrations_MissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000001_first.up.sql": {Data: []byte("SELECT 1;")},
	}
	_, err := loadMigrations(fsys, "m")
	assert.Error(t, err)
}

func newHistoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&MigrationLog{}))
	return db
}

func TestMigrationStore_ApplyAndRevert(t *testing.T) {
	db := newHistoryDB(t)
	ctx := context.Background()
	store := NewMigrationStore(db)
	m := Migration{
		Version:    1,
		Name:       "scratch",
		UpScript:   "CREATE TABLE scratch (id INTEGER PRIMARY KEY)",
		DownScript: "DROP TABLE scratch",
	}

	require.NoError(t, store.Apply(ctx, m))
	assert.True(t, db.Migrator().HasTable("scratch"))

	history, err := store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, m.Checksum(), history[0].Checksum)

	require.NoError(t, store.Revert(ctx, m))
	assert.False(t, db.Migrator().HasTable("scratch"))
	history, err = store.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMigrationStore_FailedScriptIsNotRecorded(t *testing.T) {
	db := newHistoryDB(t)
	ctx := context.Background()
	store := NewMigrationStore(db)
	assert.Error(t, store.Apply(ctx, Migration{Version: 2, Name: "broken", UpScript: "CREATE TABLE ("}))

	history, err := store.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMigrationStore_HistoryWithoutTable(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	history, err := NewMigrationStore(db).History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRollbackMigration_Guards(t *testing.T) {
	db := newHistoryDB(t)
	ctx := context.Background()

	assert.ErrorContains(t, RollbackMigration(ctx, db, 9999), "not found")
	assert.ErrorContains(t, RollbackMigration(ctx, db, 1), "has not been applied")

	require.NoError(t, db.Create(&[]MigrationLog{{Version: 1, Name: "init"}, {Version: 2, Name: "later"}}).Error)
	assert.ErrorContains(t, RollbackMigration(ctx, db, 1), "000002 is newer")
}
