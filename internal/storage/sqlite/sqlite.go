package sqlite

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goodtune/countdown/internal/storage"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DeadlineRecord is the table row behind storage.Record.
type DeadlineRecord struct {
	Identity       string `gorm:"primaryKey"`
	DeadlineMillis int64
	SetAtMillis    int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Store implements storage.DeadlineStore on SQLite through gorm.
type Store struct {
	db *gorm.DB
}

var _ storage.DeadlineStore = (*Store)(nil)

// Open opens a SQLite database and runs migrations.
func Open(dsn string, log zerolog.Logger) (*Store, error) {
	if dsn == "" {
		dsn = "countdown.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		stdlog.New(log.With().Str("component", "sqlite").Logger(), "", 0),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&DeadlineRecord{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &Store{db: db}, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts the row for identity.
func (s *Store) Save(ctx context.Context, identity string, record storage.Record) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}

	row := DeadlineRecord{
		Identity:       identity,
		DeadlineMillis: record.DeadlineMillis,
		SetAtMillis:    record.SetAtMillis,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"deadline_millis", "set_at_millis", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save deadline: %w", err)
	}
	return nil
}

// Load returns the row for identity.
func (s *Store) Load(ctx context.Context, identity string) (*storage.Record, error) {
	if err := storage.CheckIdentity(identity); err != nil {
		return nil, err
	}

	var row DeadlineRecord
	err := s.db.WithContext(ctx).Where("identity = ?", identity).First(&row).Error
	switch {
	case err == nil:
		return &storage.Record{DeadlineMillis: row.DeadlineMillis, SetAtMillis: row.SetAtMillis}, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, storage.ErrNotFound
	default:
		return nil, fmt.Errorf("load deadline: %w", err)
	}
}

// Delete removes the row for identity.
func (s *Store) Delete(ctx context.Context, identity string) error {
	if err := storage.CheckIdentity(identity); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Where("identity = ?", identity).
		Delete(&DeadlineRecord{}).Error; err != nil {
		return fmt.Errorf("delete deadline: %w", err)
	}
	return nil
}
