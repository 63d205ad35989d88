package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/duskwallet/duskwallet-api/internal/models"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

// ErrNotFound is returned when no analysis matches for the requesting user.
var ErrNotFound = errors.New("analysis: not found")

// Summary is the listing view of an analysis.
type Summary struct {
	ID        string
	Summary   string
	CreatedAt time.Time
}

// Latest returns the most recent analysis of userID.
func (s *Service) Latest(ctx context.Context, userID string) (models.Analysis, error) {
	var record models.Analysis
	errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Analysis{}, ErrNotFound
		}
		return models.Analysis{}, fmt.Errorf("analysis: latest: %w", errFind)
	}
	return record, nil
}

// History lists up to limit analyses of userID, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Summary, error) {
	limit = ClampHistoryLimit(limit)
	var rows []models.Analysis
	errFind := s.db.WithContext(ctx).
		Select("id", "summary", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("analysis: history: %w", errFind)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{ID: row.ID, Summary: row.Summary, CreatedAt: row.CreatedAt})
	}
	return out, nil
}

// Get returns analysis id if it belongs to userID. A foreign id reports ErrNotFound.
func (s *Service) Get(ctx context.Context, userID, id string) (models.Analysis, error) {
	var record models.Analysis
	errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&record).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.Analysis{}, ErrNotFound
		}
		return models.Analysis{}, fmt.Errorf("analysis: get: %w", errFind)
	}
	return record, nil
}

// ClampHistoryLimit applies the default and the upper bound to a requested limit.
func ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
