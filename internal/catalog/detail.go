package catalog

import (
	"strings"

	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/pricing"
)

// ProcessItem builds the full detail view of a raw product object
func ProcessItem(data map[string]interface{}) *models.ProductDetail {
	if data == nil {
		data = map[string]interface{}{}
	}

	apps := Applications(data)
	applications := make([]models.Application, 0, len(apps))
	for _, app := range apps {
		applications = append(applications, models.Application{
			Body:         app["carroceria"],
			Cylinders:    app["cilindros"],
			Fuel:         app["combustivel"],
			YearEnd:      app["fabricacaoFinal"],
			YearStart:    app["fabricacaoInicial"],
			HP:           app["hp"],
			ID:           app["id"],
			Line:         app["linha"],
			Model:        app["modelo"],
			Manufacturer: app["montadora"],
			Version:      app["versao"],
			Generation:   app["geracao"],
			Image:        app["imagem"],
			Engine:       app["motor"],
		})
	}

	var family models.Family
	if fam, ok := data["familia"].(map[string]interface{}); ok && len(fam) > 0 {
		family.Description = fam["descricao"]
		family.ID = fam["id"]
		if sub, ok := fam["subFamilia"].(map[string]interface{}); ok {
			family.SubfamilyDescription = sub["descricao"]
		}
	}

	return &models.ProductDetail{
		Name:          data["nomeProduto"],
		ID:            data["id"],
		Brand:         data["marca"],
		ReferenceCode: data["codigoReferencia"],
		Image:         data["imagemReal"],
		Logo:          data["logoMarca"],
		Score:         models.ToFloatPtr(data["score"]),
		Applications:  applications,
		Family:        family,
		Pricing:       pricing.SimulatePricing(data),
		Metrics:       pricing.SimulateMetrics(data),
	}
}

// ProcessSimilars extracts the similarity relations of a raw product object
func ProcessSimilars(data map[string]interface{}) models.Similars {
	out := models.Similars{
		Similar:          []models.SimilarProduct{},
		PartiallySimilar: []models.PartiallySimilarProduct{},
		ChildSystems:     listOf(data["produtosSistemasFilhos"]),
		ParentSystems:    listOf(data["produtosSistemasPais"]),
	}

	for _, sim := range objects(data["similares"]) {
		out.Similar = append(out.Similar, models.SimilarProduct{
			ID:            sim["id"],
			Logo:          sim["logoMarca"],
			Brand:         sim["marca"],
			Trusted:       sim["confiavel"],
			Discontinued:  sim["descontinuado"],
			ReferenceCode: sim["codigoReferencia"],
		})
	}
	for _, ps := range objects(data["produtosParcialmenteSimilares"]) {
		out.PartiallySimilar = append(out.PartiallySimilar, models.PartiallySimilarProduct{
			ReferenceCode: ps["codigoReferencia"],
			Brand:         ps["marca"],
			Name:          ps["nomeProduto"],
		})
	}
	return out
}

// ChooseRecord picks the record matching the lookup: by id, then reference
// code, then exact name, otherwise the first one.
func ChooseRecord(records []models.RawRecord, lookup models.ProductLookup) (models.RawRecord, bool) {
	if len(records) == 0 {
		return models.RawRecord{}, false
	}

	if lookup.ID != nil && *lookup.ID != 0 {
		want := models.StringOf(*lookup.ID)
		for _, rec := range records {
			if models.StringOf(rec.Data["id"]) == want {
				return rec, true
			}
		}
	}
	if code := strings.ToUpper(strings.TrimSpace(lookup.ReferenceCode)); code != "" {
		for _, rec := range records {
			if strings.ToUpper(trimmed(rec.Data["codigoReferencia"])) == code {
				return rec, true
			}
		}
	}
	if name := strings.ToLower(strings.TrimSpace(lookup.Name)); name != "" {
		for _, rec := range records {
			if strings.ToLower(trimmed(rec.Data["nomeProduto"])) == name {
				return rec, true
			}
		}
	}
	return records[0], true
}

func objects(v interface{}) []map[string]interface{} {
	list, _ := v.([]interface{})
	out := make([]map[string]interface{}, 0, len(list))
	for _, entry := range list {
		if obj, ok := entry.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}

func listOf(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{}
}
