package testutil

import (
	"encoding/json"

	"github.com/fabienpiette/partfox/internal/models"
)

// ProductPageJSON is a product query page with one wrapped and one bare record
const ProductPageJSON = `{
  "pageResult": {
    "data": [
      {
        "score": 3.5,
        "data": {
          "id": 1,
          "nomeProduto": "Disco de Freio",
          "marca": "FREMAX",
          "codigoReferencia": "BD1234",
          "imagemReal": "https://img.example/bd1234.jpg",
          "logoMarca": "https://img.example/fremax.png",
          "aplicacoes": [
            {"montadora": "VOLKSWAGEN", "modelo": "GOL", "hp": "80", "fabricacaoInicial": "2008", "fabricacaoFinal": "2014"}
          ],
          "familia": {"id": 10, "descricao": "FREIOS", "subFamilia": {"descricao": "DISCO"}},
          "similares": [
            {"id": 77, "logoMarca": "l.png", "marca": "HIPPER", "confiavel": true, "descontinuado": false, "codigoReferencia": "HF100"}
          ],
          "produtosParcialmenteSimilares": [
            {"codigoReferencia": "X1", "marca": "TRW", "nomeProduto": "Disco de Freio Ventilado"}
          ]
        }
      },
      {
        "id": 2,
        "nomeProduto": "Pastilha de Freio",
        "marca": "COBREQ",
        "codigoReferencia": "N-1200",
        "aplicacoes": [
          {"montadora": "FIAT", "modelo": "UNO", "hp": "75", "fabricacaoInicial": "2010", "fabricacaoFinal": "2016"}
        ]
      }
    ],
    "totalCount": 2
  }
}`

// SummaryPageJSON is a summary search page
const SummaryPageJSON = `{
  "pageResult": {
    "data": [
      {"score": 5.1, "data": {"id": 3, "nomeProduto": "Filtro de Oleo", "marca": "TECFIL", "codigoReferencia": "PSL55"}},
      {"score": 4.2, "data": {"id": 4, "nomeProduto": "Filtro de Ar", "marca": "MANN", "codigoReferencia": "C27"}}
    ],
    "totalCount": 2
  }
}`

// Record builds a bare raw record from key/value pairs
func Record(fields map[string]interface{}) models.RawRecord {
	return models.NewRawRecord(fields)
}

// ScoredRecord builds a wrapped raw record carrying a relevance score
func ScoredRecord(score float64, fields map[string]interface{}) models.RawRecord {
	return models.NewRawRecord(map[string]interface{}{"data": fields, "score": score})
}

// Product builds a bare record with the common product fields
func Product(id int, name, brand, code string, manufacturers ...string) models.RawRecord {
	apps := make([]interface{}, 0, len(manufacturers))
	for _, m := range manufacturers {
		apps = append(apps, map[string]interface{}{"montadora": m})
	}
	return Record(map[string]interface{}{
		"id":               id,
		"nomeProduto":      name,
		"marca":            brand,
		"codigoReferencia": code,
		"aplicacoes":       apps,
	})
}

// Result wraps records in a query result
func Result(records ...models.RawRecord) *models.QueryResult {
	if records == nil {
		records = []models.RawRecord{}
	}
	return &models.QueryResult{Records: records, TotalCount: len(records)}
}

// DecodeRecords decodes a catalog page JSON into raw records
func DecodeRecords(page string) []models.RawRecord {
	var envelope struct {
		PageResult struct {
			Data []models.RawRecord `json:"data"`
		} `json:"pageResult"`
	}
	if err := json.Unmarshal([]byte(page), &envelope); err != nil {
		panic(err)
	}
	return envelope.PageResult.Data
}
