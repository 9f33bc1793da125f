// Package journal persists attempt outcomes for diagnostics. Nothing in the
// routing path reads it back.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"llm-router/internal/llm-router/models"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one attempt as reported by the router.
type Entry struct {
	RequestID      string
	Backend        string
	AttemptNumber  int
	Success        bool
	ErrorCode      string
	Classification string
	ErrorMessage   string
	LatencyMs      int64
}

type Attempt struct {
	Id             uuid.UUID `gorm:"primaryKey"`
	RequestID      string    `gorm:"index"`
	Backend        string    `gorm:"index"`
	AttemptNumber  int
	Success        bool
	ErrorCode      string
	Classification string
	ErrorMessage   string
	LatencyMs      int64
	Timestamp      time.Time `gorm:"index"`
}

type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the sqlite journal at path and makes sure the
// attempts table exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.AutoMigrate(&Attempt{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, entry Entry) error {
	var attempt Attempt
	if err := copier.Copy(&attempt, &entry); err != nil {
		return fmt.Errorf("failed to map attempt: %w", err)
	}
	attempt.Id = uuid.New()
	attempt.Timestamp = time.Now().UTC()

	result := s.db.WithContext(ctx).Create(&attempt)
	if result.Error != nil {
		return fmt.Errorf("failed to record attempt: %w", result.Error)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.AttemptInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	var attempts []Attempt
	result := s.db.WithContext(ctx).
		Order("timestamp desc").Order("attempt_number desc").
		Limit(limit).
		Find(&attempts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", result.Error)
	}
	return toInfos(attempts)
}

// ForRequest returns the attempts of one request in attempt order.
func (s *Store) ForRequest(ctx context.Context, requestID string) ([]models.AttemptInfo, error) {
	var attempts []Attempt
	result := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("attempt_number asc").
		Find(&attempts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", result.Error)
	}
	return toInfos(attempts)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toInfos(attempts []Attempt) ([]models.AttemptInfo, error) {
	infos := make([]models.AttemptInfo, 0, len(attempts))
	for _, a := range attempts {
		var info models.AttemptInfo
		if err := copier.Copy(&info, &a); err != nil {
			return nil, fmt.Errorf("failed to map attempt: %w", err)
		}
		info.CreatedAt = a.Timestamp.Format(time.RFC3339Nano)
		infos = append(infos, info)
	}
	return infos, nil
}
