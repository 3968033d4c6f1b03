package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/studenthub-portal/internal/models"
)

// GormStore keeps sessions in a SQL table for deployments without Redis.
type GormStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewGormStore builds a SQL-backed store. Call Migrate before first use.
func NewGormStore(db *gorm.DB, ttl time.Duration) *GormStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GormStore{db: db, ttl: ttl, now: time.Now}
}

// Migrate creates the sessions table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&models.SessionRecord{})
}

func (s *GormStore) Create(ctx context.Context, credential string) (Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Session{}, ErrEmptyCredential
	}

	now := s.now().UTC()
	record := models.SessionRecord{
		ID:         uuid.NewString(),
		Credential: credential,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return toSession(record), nil
}

func (s *GormStore) Get(ctx context.Context, id string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, ErrSessionNotFound
	}

	var record models.SessionRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !s.now().Before(record.ExpiresAt) {
		_ = s.db.WithContext(ctx).Delete(&models.SessionRecord{}, "id = ?", id).Error
		return Session{}, ErrSessionNotFound
	}
	return toSession(record), nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&models.SessionRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes every expired row and returns how many were deleted.
func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&models.SessionRecord{})
	return result.RowsAffected, result.Error
}

func toSession(record models.SessionRecord) Session {
	return Session{
		ID:         record.ID,
		Credential: record.Credential,
		CreatedAt:  record.CreatedAt,
		ExpiresAt:  record.ExpiresAt,
	}
}
