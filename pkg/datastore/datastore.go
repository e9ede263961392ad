// Package datastore persists classified harness records in the relational
// "data" table.
package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/harnessoor/pkg/classifier"
	"github.com/ethpandaops/harnessoor/pkg/config"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("record not found")

// Store provides persistence for the harness dataset.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// ReplaceSnapshot drops the data table, discarding every existing row,
	// and recreates it empty.
	ReplaceSnapshot(ctx context.Context) error
	// InsertRecord appends one row. Each insert is atomic.
	InsertRecord(ctx context.Context, rec *classifier.HarnessRecord) error

	ListRecords(ctx context.Context) ([]classifier.HarnessRecord, error)
	GetRecord(ctx context.Context, fileName string) (*classifier.HarnessRecord, error)
	CountRecords(ctx context.Context) (int64, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "datastore"),
		cfg: cfg,
	}
}

// Start opens the database connection.
func (s *store) Start(_ context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if s.cfg.Driver == "sqlite" {
		// A single connection keeps ":memory:" databases shared and
		// serializes writers.
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("getting underlying db: %w", err)
		}

		sqlDB.SetMaxOpenConns(1)
	}

	s.db = db

	s.log.WithField("driver", s.cfg.Driver).
		Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// ReplaceSnapshot drops and recreates the data table.
func (s *store) ReplaceSnapshot(ctx context.Context) error {
	migrator := s.db.WithContext(ctx).Migrator()

	if err := migrator.DropTable(&Row{}); err != nil {
		return fmt.Errorf("dropping %s table: %w", DataTable, err)
	}

	if err := migrator.CreateTable(&Row{}); err != nil {
		return fmt.Errorf("creating %s table: %w", DataTable, err)
	}

	s.log.WithField("table", DataTable).Info("Replaced dataset snapshot")

	return nil
}

// InsertRecord appends rec as one row.
func (s *store) InsertRecord(
	ctx context.Context, rec *classifier.HarnessRecord,
) error {
	if err := s.db.WithContext(ctx).
		Create(rowFromRecord(rec)).Error; err != nil {
		return fmt.Errorf("inserting record %s: %w", rec.FileName, err)
	}

	return nil
}

// ListRecords returns all rows in insertion order. sqlite orders by rowid.
// postgres orders by ctid, which follows insertion order because the table
// is only ever appended to between snapshots.
func (s *store) ListRecords(
	ctx context.Context,
) ([]classifier.HarnessRecord, error) {
	var rows []Row
	if err := s.db.WithContext(ctx).
		Order(insertionOrder(s.cfg.Driver)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	records := make([]classifier.HarnessRecord, 0, len(rows))

	for i := range rows {
		rec, err := rows[i].record()
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}

		records = append(records, *rec)
	}

	return records, nil
}

// insertionOrder returns the physical row locator of driver.
func insertionOrder(driver string) string {
	if driver == "postgres" {
		return "ctid"
	}

	return "rowid"
}

// GetRecord returns the first row with the given file name.
func (s *store) GetRecord(
	ctx context.Context, fileName string,
) (*classifier.HarnessRecord, error) {
	var row Row
	if err := s.db.WithContext(ctx).
		Where("file_name = ?", fileName).
		Order(insertionOrder(s.cfg.Driver)).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("getting record %s: %w", fileName, err)
	}

	return row.record()
}

// CountRecords returns the number of rows in the data table.
func (s *store) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&Row{}).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	return n, nil
}
