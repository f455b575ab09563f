package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// RawRecord is a single product entry from the external catalog, resolved once
// from either the wrapped shape {"data": {...}, "score": n} or the bare object.
type RawRecord struct {
	Data    map[string]interface{}
	Score   *float64
	Wrapped bool
}

// NewRawRecord resolves the wrapped/bare variant of a decoded catalog entry
func NewRawRecord(entry map[string]interface{}) RawRecord {
	if entry == nil {
		return RawRecord{Data: map[string]interface{}{}}
	}
	if inner, ok := entry["data"].(map[string]interface{}); ok {
		return RawRecord{Data: inner, Score: ToFloatPtr(entry["score"]), Wrapped: true}
	}
	return RawRecord{Data: entry, Score: ToFloatPtr(entry["score"])}
}

// UnmarshalJSON decodes a catalog entry keeping numbers as json.Number
func (r *RawRecord) UnmarshalJSON(b []byte) error {
	var entry map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&entry); err != nil {
		return err
	}
	*r = NewRawRecord(entry)
	return nil
}

// MarshalJSON re-encodes the record in the shape it was received in
func (r RawRecord) MarshalJSON() ([]byte, error) {
	if r.Wrapped {
		return json.Marshal(map[string]interface{}{"data": r.Data, "score": r.Score})
	}
	return json.Marshal(r.Data)
}

// Installments is the simulated payment plan shown next to a price
type Installments struct {
	Count int     `json:"qtd"`
	Value float64 `json:"valor"`
}

// Pricing is the deterministic simulated price block of a product
type Pricing struct {
	OriginalPrice   float64      `json:"precoOriginal"`
	DiscountPercent int          `json:"descontoPercentual"`
	Price           float64      `json:"preco"`
	Installments    Installments `json:"parcelas"`
}

// Metrics are deterministic simulated rating and sales figures
type Metrics struct {
	AverageRating float64 `json:"avaliacao_media"`
	Reviews       int     `json:"avaliacoes"`
	Sold          int     `json:"vendidos"`
}

// NormalizedItem is the canonical flat product shape served to clients
type NormalizedItem struct {
	Name          string      `json:"nome"`
	Brand         string      `json:"marca"`
	ReferenceCode string      `json:"codigoReferencia"`
	ID            interface{} `json:"id"`
	Power         interface{} `json:"potencia"`
	YearStart     interface{} `json:"ano_inicio"`
	YearEnd       interface{} `json:"ano_fim"`
	Image         interface{} `json:"imagemReal"`

	Price           float64      `json:"preco"`
	OriginalPrice   float64      `json:"precoOriginal"`
	DiscountPercent int          `json:"descontoPercentual"`
	Installments    Installments `json:"parcelas"`

	Score *float64 `json:"score"`

	AverageRating float64 `json:"avaliacao_media"`
	Reviews       int     `json:"avaliacoes"`
	Sold          int     `json:"vendidos"`
}

// Application is a normalized fitment entry of a product detail
type Application struct {
	Body         interface{} `json:"carroceria"`
	Cylinders    interface{} `json:"cilindros"`
	Fuel         interface{} `json:"combustivel"`
	YearEnd      interface{} `json:"fabricacaoFinal"`
	YearStart    interface{} `json:"fabricacaoInicial"`
	HP           interface{} `json:"hp"`
	ID           interface{} `json:"id"`
	Line         interface{} `json:"linha"`
	Model        interface{} `json:"modelo"`
	Manufacturer interface{} `json:"montadora"`
	Version      interface{} `json:"versao"`
	Generation   interface{} `json:"geracao"`
	Image        interface{} `json:"imagem"`
	Engine       interface{} `json:"motor"`
}

// Family summarizes the product family of a detail record
type Family struct {
	Description          interface{} `json:"descricao,omitempty"`
	ID                   interface{} `json:"id,omitempty"`
	SubfamilyDescription interface{} `json:"subFamiliaDescricao,omitempty"`
}

// ProductDetail is the full normalized view of one catalog product
type ProductDetail struct {
	Name          interface{}   `json:"nomeProduto"`
	ID            interface{}   `json:"id"`
	Brand         interface{}   `json:"marca"`
	ReferenceCode interface{}   `json:"codigoReferencia"`
	Image         interface{}   `json:"imagemReal"`
	Logo          interface{}   `json:"logomarca"`
	Score         *float64      `json:"score"`
	Applications  []Application `json:"aplicacoes"`
	Family        Family        `json:"familia"`
	Pricing
	Metrics
}

// SimilarProduct is an equivalent part from another brand
type SimilarProduct struct {
	ID            interface{} `json:"id"`
	Logo          interface{} `json:"logoMarca"`
	Brand         interface{} `json:"marca"`
	Trusted       interface{} `json:"confiavel"`
	Discontinued  interface{} `json:"descontinuado"`
	ReferenceCode interface{} `json:"codigoReferencia"`
}

// PartiallySimilarProduct is a part that only partly matches the product
type PartiallySimilarProduct struct {
	ReferenceCode interface{} `json:"codigoReferencia"`
	Brand         interface{} `json:"marca"`
	Name          interface{} `json:"nomeProduto"`
}

// Similars groups the similarity relations of a product
type Similars struct {
	Similar          []SimilarProduct          `json:"similares"`
	PartiallySimilar []PartiallySimilarProduct `json:"produtosParcialmenteSimilares"`
	ChildSystems     []interface{}             `json:"produtosSistemasFilhos"`
	ParentSystems    []interface{}             `json:"produtosSistemasPais"`
}

// ProductDetailResponse is returned by the product detail lookup
type ProductDetailResponse struct {
	Item     *ProductDetail `json:"item"`
	Similars Similars       `json:"similares"`
}

// ToFloatPtr converts a decoded JSON scalar into a float pointer, nil when not numeric
func ToFloatPtr(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// StringOf renders a decoded JSON scalar as a string, "" for nil and non-scalars
func StringOf(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// IsBlank reports whether a decoded JSON value is absent, zero or empty
func IsBlank(v interface{}) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case json.Number:
		f, err := s.Float64()
		return err == nil && f == 0
	case float64:
		return s == 0
	case int:
		return s == 0
	case int64:
		return s == 0
	case bool:
		return !s
	case []interface{}:
		return len(s) == 0
	case map[string]interface{}:
		return len(s) == 0
	default:
		return false
	}
}
