package models

import "time"

// ProductFilter is the "produtoFiltro" block of a catalog query
type ProductFilter struct {
	Name             string `json:"nomeProduto,omitempty"`
	ReferenceCode    string `json:"codigoReferencia,omitempty"`
	ManufacturerName string `json:"nomeFabricante,omitempty"`
	FamilyID         *int   `json:"familiaId,omitempty"`
	LastLevelID      *int   `json:"ultimoNivelId,omitempty"`
	ID               *int64 `json:"id,omitempty"`
}

// VehicleFilter is the "veiculoFiltro" block of a catalog query
type VehicleFilter struct {
	Plate string `json:"veiculoPlaca,omitempty"`
}

// ProductQuery is one paged product query against the catalog
type ProductQuery struct {
	Product  ProductFilter
	Vehicle  VehicleFilter
	Page     int
	PageSize int
}

// QueryResult holds the records of one catalog page
type QueryResult struct {
	Records    []RawRecord `json:"records"`
	TotalCount int         `json:"total_count"`
}

// Reference is an id/name pair from the catalog reference lists
type Reference struct {
	ID   interface{} `json:"id"`
	Name string      `json:"nome"`
}

// ProductGroup is a catalog "last level" group with its parent family id
type ProductGroup struct {
	ID          interface{} `json:"id"`
	Description string      `json:"descricao"`
	FamilyID    *int        `json:"familia_id,omitempty"`
}

// TokenInfo describes a cached upstream access token
type TokenInfo struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Valid reports whether the token outlives the safety window
func (t *TokenInfo) Valid(now time.Time, window time.Duration) bool {
	return t != nil && t.AccessToken != "" && now.Add(window).Before(t.ExpiresAt)
}
