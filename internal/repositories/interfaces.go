package repositories

import (
	"context"
	"time"

	"github.com/fabienpiette/partfox/internal/models"
)

// SearchHistoryRepository defines the interface for search history persistence
type SearchHistoryRepository interface {
	Create(ctx context.Context, entry *models.SearchHistoryEntry) error
	Recent(ctx context.Context, limit int) ([]*models.SearchHistoryEntry, error)
	Popular(ctx context.Context, limit int, days int) ([]*models.PopularSearch, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResultCache stores JSON-encoded values with a TTL. Get reports false on a miss.
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
