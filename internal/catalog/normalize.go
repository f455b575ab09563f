package catalog

import (
	"strings"

	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/pricing"
)

// Normalize maps raw catalog records into the flat item shape. It never fails;
// missing fields fall back to empty values.
func Normalize(records []models.RawRecord) []models.NormalizedItem {
	items := make([]models.NormalizedItem, 0, len(records))
	for _, rec := range records {
		items = append(items, NormalizeRecord(rec))
	}
	return items
}

// NormalizeRecord maps one raw record
func NormalizeRecord(rec models.RawRecord) models.NormalizedItem {
	data := rec.Data
	if data == nil {
		data = map[string]interface{}{}
	}

	price := pricing.SimulatePricing(data)
	metrics := pricing.SimulateMetrics(data)
	fitment := firstApplication(data)

	return models.NormalizedItem{
		Name:          trimmed(data["nomeProduto"]),
		Brand:         trimmed(data["marca"]),
		ReferenceCode: trimmed(data["codigoReferencia"]),

		Power:     valueOr(fitment, "hp", ""),
		YearStart: valueOr(fitment, "fabricacaoInicial", ""),
		YearEnd:   valueOr(fitment, "fabricacaoFinal", ""),

		ID:    valueOr(data, "id", ""),
		Image: valueOr(data, "imagemReal", ""),

		Price:           price.Price,
		OriginalPrice:   price.OriginalPrice,
		DiscountPercent: price.DiscountPercent,
		Installments:    price.Installments,

		Score: rec.Score,

		AverageRating: metrics.AverageRating,
		Reviews:       metrics.Reviews,
		Sold:          metrics.Sold,
	}
}

// Applications returns the fitment entries of a record that decode as objects
func Applications(data map[string]interface{}) []map[string]interface{} {
	list, _ := data["aplicacoes"].([]interface{})
	apps := make([]map[string]interface{}, 0, len(list))
	for _, entry := range list {
		if app, ok := entry.(map[string]interface{}); ok {
			apps = append(apps, app)
		}
	}
	return apps
}

// MatchesManufacturer reports whether any fitment entry names the given
// vehicle manufacturer, compared case-insensitively.
func MatchesManufacturer(data map[string]interface{}, manufacturer string) bool {
	want := strings.ToUpper(strings.TrimSpace(manufacturer))
	for _, app := range Applications(data) {
		if strings.ToUpper(strings.TrimSpace(models.StringOf(app["montadora"]))) == want {
			return true
		}
	}
	return false
}

func firstApplication(data map[string]interface{}) map[string]interface{} {
	list, _ := data["aplicacoes"].([]interface{})
	if len(list) == 0 {
		return nil
	}
	app, _ := list[0].(map[string]interface{})
	return app
}

func trimmed(v interface{}) string {
	return strings.TrimSpace(models.StringOf(v))
}

func valueOr(m map[string]interface{}, key string, def interface{}) interface{} {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}
