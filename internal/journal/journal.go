// Package journal keeps an operator-side record of finished predictions,
// including the raw diagnostics that are never shown to end users.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/himanishpuri/GenreGenius/pkg/genregenius"
	"github.com/himanishpuri/GenreGenius/pkg/utils"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

const errJournalNil = "journal is nil"

// Entry is one stored outcome.
type Entry struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	SessionID  string `gorm:"type:varchar(36);index:idx_session" json:"session_id"`
	Generation uint64 `json:"generation"`
	SourceURL  string `json:"source_url"`
	Status     string `gorm:"index:idx_status" json:"status"`
	Kind       string `json:"kind,omitempty"`
	Predicted  string `json:"predicted,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  time.Time
}

func (Entry) TableName() string { return "outcomes" }

type Journal struct {
	DB *gorm.DB
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	dsn := path
	if path != MemoryPath {
		if err := utils.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("creating journal dir: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// Each connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Entry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Journal{DB: db, db: sqlDB}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores a finished outcome. It satisfies genregenius.Journal.
func (j *Journal) Record(ctx context.Context, o genregenius.Outcome) error {
	if j == nil || j.DB == nil {
		return errors.New(errJournalNil)
	}

	entry := Entry{
		ID:         uuid.NewString(),
		SessionID:  o.SessionID,
		Generation: o.Generation,
		SourceURL:  o.SourceURL,
		Status:     o.Status.String(),
		Kind:       string(o.Kind),
		Predicted:  o.Predicted,
		Diagnostic: o.Diagnostic,
		DurationMs: o.Duration.Milliseconds(),
		CreatedAt:  o.FinishedAt,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	if err := j.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if j == nil || j.DB == nil {
		return nil, errors.New(errJournalNil)
	}

	q := j.DB.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	return entries, nil
}

// Failures returns failed entries of the given kind, newest first. An empty
// kind matches every failure.
func (j *Journal) Failures(ctx context.Context, kind genregenius.ErrorKind) ([]Entry, error) {
	if j == nil || j.DB == nil {
		return nil, errors.New(errJournalNil)
	}

	q := j.DB.WithContext(ctx).Where("status = ?", genregenius.StatusFailed.String())
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}

	var entries []Entry
	if err := q.Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	return entries, nil
}
