package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cosmossdk.io/log"
)

// Store wraps the relational database with the sinks the export pipeline
// writes through. All writes are upserts with explicit conflict targets so
// re-processing a block range is idempotent.
type Store struct {
	db     *gorm.DB
	logger log.Logger
}

// NewStore wraps an open gorm handle.
func NewStore(gdb *gorm.DB, logger log.Logger) *Store {
	return &Store{
		db:     gdb,
		logger: logger.With("module", "db"),
	}
}

// Open connects to Postgres at dsn.
func Open(dsn string, logger log.Logger) (*Store, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return NewStore(gdb, logger), nil
}

// Migrate creates or updates the schema, including the composite unique
// indexes the upsert conflict targets depend on.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&Block{},
		&Contract{},
		&WasmStateEvent{},
		&WasmStateEventTransformation{},
		&IndexerState{},
		&WasmCodeKeyID{},
	)
}
