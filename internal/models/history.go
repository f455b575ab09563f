package models

import "time"

// SearchHistoryEntry records one executed product search
type SearchHistoryEntry struct {
	ID           int64        `json:"id"`
	Query        string       `json:"query"`
	Plate        string       `json:"plate,omitempty"`
	Mode         SearchMode   `json:"mode"`
	ResultsCount int          `json:"results_count"`
	Status       SearchStatus `json:"status"`
	DurationMS   int          `json:"duration_ms"`
	SearchedAt   time.Time    `json:"searched_at"`
}

// PopularSearch aggregates history entries by query
type PopularSearch struct {
	Query      string    `json:"query"`
	Count      int       `json:"count"`
	LastSearch time.Time `json:"last_search"`
}
