package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/pricing"
)

const detailFixture = `{
	"id": 77,
	"nomeProduto": "Amortecedor Dianteiro",
	"marca": "COFAP",
	"codigoReferencia": "GP32960",
	"imagemReal": "http://img/77.png",
	"logoMarca": "http://img/cofap.png",
	"score": 4.2,
	"aplicacoes": [{"montadora": "FIAT", "modelo": "UNO", "hp": 75, "motor": "1.0", "extra": "ignored"}],
	"familia": {"id": 5, "descricao": "SUSPENSAO", "subFamilia": {"descricao": "AMORTECEDORES"}},
	"similares": [{"id": 1, "marca": "MONROE", "codigoReferencia": "SP123", "confiavel": true, "descontinuado": false, "logoMarca": "x", "extra": 1}],
	"produtosParcialmenteSimilares": [{"codigoReferencia": "AB1", "marca": "NAKATA", "nomeProduto": "Amortecedor", "extra": 2}],
	"produtosSistemasPais": [{"id": 9}]
}`

func decodeObject(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var rec models.RawRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec.Data
}

func TestProcessItem(t *testing.T) {
	detail := ProcessItem(decodeObject(t, detailFixture))

	assert.Equal(t, "Amortecedor Dianteiro", detail.Name)
	assert.Equal(t, "COFAP", detail.Brand)
	assert.Equal(t, "http://img/cofap.png", detail.Logo)
	require.NotNil(t, detail.Score)
	assert.Equal(t, 4.2, *detail.Score)

	require.Len(t, detail.Applications, 1)
	assert.Equal(t, "FIAT", detail.Applications[0].Manufacturer)
	assert.Equal(t, "UNO", detail.Applications[0].Model)
	assert.Equal(t, "1.0", detail.Applications[0].Engine)
	assert.Nil(t, detail.Applications[0].Body)

	assert.Equal(t, "SUSPENSAO", detail.Family.Description)
	assert.Equal(t, json.Number("5"), detail.Family.ID)
	assert.Equal(t, "AMORTECEDORES", detail.Family.SubfamilyDescription)

	assert.Equal(t, pricing.PricingFor("77"), detail.Pricing)
	assert.Equal(t, pricing.MetricsFor("77"), detail.Metrics)

	b, err := json.Marshal(detail)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "preco")
	assert.Contains(t, m, "avaliacao_media")
	assert.Contains(t, m, "logomarca")
	assert.NotContains(t, m["aplicacoes"].([]interface{})[0], "extra")
}

func TestProcessItem_EmptyFamily(t *testing.T) {
	detail := ProcessItem(map[string]interface{}{"nomeProduto": "X"})

	b, err := json.Marshal(detail.Family)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
	assert.Empty(t, detail.Applications)
	assert.Nil(t, detail.Score)
}

func TestProcessSimilars(t *testing.T) {
	similars := ProcessSimilars(decodeObject(t, detailFixture))

	require.Len(t, similars.Similar, 1)
	assert.Equal(t, "MONROE", similars.Similar[0].Brand)
	assert.Equal(t, true, similars.Similar[0].Trusted)
	require.Len(t, similars.PartiallySimilar, 1)
	assert.Equal(t, "NAKATA", similars.PartiallySimilar[0].Brand)
	assert.Len(t, similars.ParentSystems, 1)
	assert.NotNil(t, similars.ChildSystems)
	assert.Empty(t, similars.ChildSystems)
}

func TestChooseRecord(t *testing.T) {
	records := []models.RawRecord{
		models.NewRawRecord(map[string]interface{}{"id": json.Number("1"), "nomeProduto": "Filtro de Ar", "codigoReferencia": "fa-10"}),
		models.NewRawRecord(map[string]interface{}{"id": json.Number("2"), "nomeProduto": "Filtro de Óleo", "codigoReferencia": "FO-20"}),
		models.NewRawRecord(map[string]interface{}{"id": json.Number("3"), "nomeProduto": "Vela", "codigoReferencia": "V-30"}),
	}
	id := func(v int64) *int64 { return &v }

	tests := []struct {
		name     string
		lookup   models.ProductLookup
		expected json.Number
	}{
		{"by id", models.ProductLookup{ID: id(3), ReferenceCode: "FA-10"}, "3"},
		{"by reference code case-insensitive", models.ProductLookup{ReferenceCode: " FA-10 "}, "1"},
		{"by exact name", models.ProductLookup{Name: "filtro de óleo"}, "2"},
		{"unknown id falls through to code", models.ProductLookup{ID: id(99), ReferenceCode: "v-30"}, "3"},
		{"first record otherwise", models.ProductLookup{Name: "nada"}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ChooseRecord(records, tt.lookup)
			require.True(t, ok)
			assert.Equal(t, tt.expected, rec.Data["id"])
		})
	}

	_, ok := ChooseRecord(nil, models.ProductLookup{Name: "x"})
	assert.False(t, ok)
}
