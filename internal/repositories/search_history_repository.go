package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/fabienpiette/partfox/internal/models"
)

type searchHistoryRepository struct {
	db *sql.DB
}

// NewSearchHistoryRepository creates a new search history repository instance
func NewSearchHistoryRepository(db *sql.DB) SearchHistoryRepository {
	return &searchHistoryRepository{db: db}
}

// Create inserts a history entry and sets its ID
func (r *searchHistoryRepository) Create(ctx context.Context, entry *models.SearchHistoryEntry) error {
	query := `
		INSERT INTO search_history (query, plate, mode, results_count, status, duration_ms, searched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if entry.SearchedAt.IsZero() {
		entry.SearchedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.Query,
		entry.Plate,
		string(entry.Mode),
		entry.ResultsCount,
		string(entry.Status),
		entry.DurationMS,
		entry.SearchedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	entry.ID = id
	return nil
}

// Recent returns the latest history entries, newest first
func (r *searchHistoryRepository) Recent(ctx context.Context, limit int) ([]*models.SearchHistoryEntry, error) {
	query := `
		SELECT id, query, plate, mode, results_count, status, duration_ms, searched_at
		FROM search_history
		ORDER BY searched_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.SearchHistoryEntry, 0)
	for rows.Next() {
		entry := &models.SearchHistoryEntry{}
		var mode, status string

		err := rows.Scan(
			&entry.ID,
			&entry.Query,
			&entry.Plate,
			&mode,
			&entry.ResultsCount,
			&status,
			&entry.DurationMS,
			&entry.SearchedAt,
		)
		if err != nil {
			return nil, err
		}

		entry.Mode = models.SearchMode(mode)
		entry.Status = models.SearchStatus(status)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Popular aggregates the most frequent successful queries of the last days
func (r *searchHistoryRepository) Popular(ctx context.Context, limit int, days int) ([]*models.PopularSearch, error) {
	query := `
		SELECT query, COUNT(*) AS search_count, MAX(searched_at) AS last_search
		FROM search_history
		WHERE searched_at >= ? AND status = ? AND query != ''
		GROUP BY query
		ORDER BY search_count DESC, last_search DESC
		LIMIT ?
	`

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.QueryContext(ctx, query, since, string(models.SearchStatusOK), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	searches := make([]*models.PopularSearch, 0)
	for rows.Next() {
		search := &models.PopularSearch{}
		var lastSearch string

		if err := rows.Scan(&search.Query, &search.Count, &lastSearch); err != nil {
			return nil, err
		}

		// MAX() loses the column type, so the driver hands back text
		search.LastSearch = parseSQLiteTime(lastSearch)
		searches = append(searches, search)
	}

	return searches, rows.Err()
}

// DeleteOlderThan removes entries searched before cutoff
func (r *searchHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM search_history WHERE searched_at < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
