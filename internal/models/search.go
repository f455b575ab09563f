package models

import "time"

// SearchMode is the strategy the orchestrator picked for a request
type SearchMode string

const (
	SearchModeNone     SearchMode = "none"
	SearchModeTerm     SearchMode = "term"
	SearchModeCategory SearchMode = "category"
)

// SearchStatus tells "no data" apart from "upstream error" in a response
type SearchStatus string

const (
	SearchStatusOK            SearchStatus = "ok"
	SearchStatusEmptyQuery    SearchStatus = "empty_query"
	SearchStatusUpstreamError SearchStatus = "upstream_error"
)

// SearchRequest carries the query parameters of a product search
type SearchRequest struct {
	Term          string `json:"termo"`
	Plate         string `json:"placa"`
	Brand         string `json:"marca"`
	FamilyID      *int   `json:"familia_id,omitempty"`
	FamilyName    string `json:"familia_nome"`
	SubfamilyID   *int   `json:"subfamilia_id,omitempty"`
	SubfamilyName string `json:"subfamilia_nome"`
	Page          int    `json:"pagina"`
	SortBy        string `json:"ordenar_por"`
	Order         string `json:"ordem"`
	UseCache      bool   `json:"-"`
}

// Mode resolves which search strategy applies to the request
func (r *SearchRequest) Mode() SearchMode {
	switch {
	case r.Term != "":
		return SearchModeTerm
	case r.Brand != "" && r.FamilyID != nil:
		return SearchModeCategory
	default:
		return SearchModeNone
	}
}

// SearchResponse is the paginated search result contract
type SearchResponse struct {
	Items      []NormalizedItem `json:"dados"`
	Page       int              `json:"pagina"`
	TotalPages int              `json:"total_paginas"`
	Total      int              `json:"total"`
	NextPage   bool             `json:"proxima_pagina"`
	Message    string           `json:"mensagem"`
	Status     SearchStatus     `json:"status"`
	SortBy     string           `json:"ordenar_por"`
	Order      string           `json:"ordem"`
	Brands     []string         `json:"marcas"`
	DurationMS int              `json:"duracao_ms"`
	Cached     bool             `json:"cache"`
}

// CachedSearch is what the orchestrator stores in the result cache
type CachedSearch struct {
	Items    []NormalizedItem `json:"items"`
	Message  string           `json:"message"`
	StoredAt time.Time        `json:"stored_at"`
}

// AutocompleteResponse is the suggestion list contract
type AutocompleteResponse struct {
	Suggestions []string `json:"sugestoes"`
}

// ProductLookup identifies a product for the detail lookup
type ProductLookup struct {
	ID            *int64
	Name          string
	ReferenceCode string
	Brand         string
}

// IsEmpty reports whether no identifying field was supplied
func (l ProductLookup) IsEmpty() bool {
	return (l.ID == nil || *l.ID == 0) && l.Name == "" && l.ReferenceCode == ""
}
