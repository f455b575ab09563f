package ranking

import (
	"cmp"
	"math"
	"strings"

	"github.com/fabienpiette/partfox/internal/models"
)

// SortMode is a supported result ordering
type SortMode string

const (
	SortName   SortMode = "nome"
	SortScore  SortMode = "score"
	SortSold   SortMode = "vendidos"
	SortRating SortMode = "avaliacao"
	SortPrice  SortMode = "preco"
)

// Order directions as they appear in requests and responses
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Ordering is a resolved sort mode and direction
type Ordering struct {
	Mode      SortMode
	Ascending bool
}

// Direction returns "asc" or "desc"
func (o Ordering) Direction() string {
	if o.Ascending {
		return OrderAsc
	}
	return OrderDesc
}

type alias struct {
	mode  SortMode
	force string
}

var aliases = map[string]alias{
	"nome":             {SortName, ""},
	"name":             {SortName, ""},
	"score":            {SortScore, ""},
	"relevancia":       {SortScore, ""},
	"relevance":        {SortScore, ""},
	"vendidos":         {SortSold, ""},
	"mais_vendidos":    {SortSold, ""},
	"most-sold":        {SortSold, ""},
	"avaliacao":        {SortRating, ""},
	"melhor_avaliados": {SortRating, ""},
	"best-rated":       {SortRating, ""},
	"preco":            {SortPrice, ""},
	"price":            {SortPrice, ""},
	"maior_preco":      {SortPrice, OrderDesc},
	"price-high":       {SortPrice, OrderDesc},
	"menor_preco":      {SortPrice, OrderAsc},
	"price-low":        {SortPrice, OrderAsc},
}

// ParseSort resolves a requested sort key and order. Unknown keys fall back to
// name; any order other than "desc" is ascending. Price aliases carrying a
// direction override the order.
func ParseSort(sortBy, order string) (Ordering, bool) {
	o := Ordering{Mode: SortName, Ascending: !strings.EqualFold(strings.TrimSpace(order), OrderDesc)}

	key := strings.ToLower(strings.TrimSpace(sortBy))
	if key == "" {
		return o, true
	}
	a, ok := aliases[key]
	if !ok {
		return o, false
	}

	o.Mode = a.mode
	switch a.force {
	case OrderAsc:
		o.Ascending = true
	case OrderDesc:
		o.Ascending = false
	}
	return o, true
}

// NullsLast builds a comparator over an optional numeric value. Missing and
// NaN values sort after every present value in both directions; ties are
// broken by tie, which is not reversed.
func NullsLast[T any](value func(T) *float64, ascending bool, tie func(a, b T) int) func(a, b T) int {
	return func(a, b T) int {
		va, vb := present(value(a)), present(value(b))
		switch {
		case va == nil && vb == nil:
		case va == nil:
			return 1
		case vb == nil:
			return -1
		default:
			c := cmp.Compare(*va, *vb)
			if !ascending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		if tie != nil {
			return tie(a, b)
		}
		return 0
	}
}

func present(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) {
		return nil
	}
	return v
}

// ByName compares items by case-insensitive name
func ByName(a, b models.NormalizedItem) int {
	return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
}

// Comparator returns the comparator of an ordering. The result is meant for
// an ascending Rank call: direction and null handling are already applied.
func Comparator(o Ordering) func(a, b models.NormalizedItem) int {
	switch o.Mode {
	case SortScore:
		return NullsLast(func(i models.NormalizedItem) *float64 { return i.Score }, o.Ascending, ByName)
	case SortSold:
		return NullsLast(func(i models.NormalizedItem) *float64 { return floatPtr(float64(i.Sold)) }, o.Ascending, ByName)
	case SortRating:
		return NullsLast(func(i models.NormalizedItem) *float64 { return floatPtr(i.AverageRating) }, o.Ascending, ByName)
	case SortPrice:
		return NullsLast(func(i models.NormalizedItem) *float64 { return floatPtr(i.Price) }, o.Ascending, ByName)
	default:
		if o.Ascending {
			return ByName
		}
		return func(a, b models.NormalizedItem) int { return ByName(b, a) }
	}
}

// RankItems orders normalized items by o, keeping at most limit when positive
func RankItems(items []models.NormalizedItem, o Ordering, limit int) []models.NormalizedItem {
	return Rank(items, true, Comparator(o), limit)
}

func floatPtr(v float64) *float64 {
	return &v
}
