// Package pricing generates deterministic simulated prices and sales metrics
// for catalog records that carry no commercial data of their own.
package pricing

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"math/rand"
	"strconv"

	"github.com/fabienpiette/partfox/internal/models"
)

// SentinelSeed is used when a record has neither id nor name
const SentinelSeed = "SEM_ID"

// InstallmentCount is the fixed number of installments offered
const InstallmentCount = 12

// metricsOffset decorrelates the metrics stream from the pricing stream
const metricsOffset = 42

type band struct {
	min, max float64
}

var priceBands = []band{
	{79.90, 199.90},
	{200.00, 499.90},
	{500.00, 999.90},
	{1000.00, 1999.90},
}

var discounts = []int{0, 5, 7, 9, 12, 15}

// SeedString returns the identifying string of a raw record
func SeedString(data map[string]interface{}) string {
	for _, key := range []string{"id", "nomeProduto"} {
		if v, ok := data[key]; ok && !models.IsBlank(v) {
			if s := models.StringOf(v); s != "" {
				return s
			}
		}
	}
	return SentinelSeed
}

// Seed hashes the seed string and keeps the first 8 hex digits
func Seed(seed string) int64 {
	sum := md5.Sum([]byte(seed))
	n, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return n
}

// SimulatePricing returns the simulated price block for a raw record
func SimulatePricing(data map[string]interface{}) models.Pricing {
	return PricingFor(SeedString(data))
}

// SimulateMetrics returns the simulated rating and sales figures for a raw record
func SimulateMetrics(data map[string]interface{}) models.Metrics {
	return MetricsFor(SeedString(data))
}

// PricingFor derives the price block from a seed string
func PricingFor(seed string) models.Pricing {
	rng := rand.New(rand.NewSource(Seed(seed)))

	b := priceBands[rng.Intn(len(priceBands))]
	original := round(b.min+rng.Float64()*(b.max-b.min), 2)
	discount := discounts[rng.Intn(len(discounts))]
	price := round(original*(1-float64(discount)/100), 2)

	return models.Pricing{
		OriginalPrice:   original,
		DiscountPercent: discount,
		Price:           price,
		Installments: models.Installments{
			Count: InstallmentCount,
			Value: round(price/InstallmentCount, 2),
		},
	}
}

// MetricsFor derives rating and sales figures from a seed string
func MetricsFor(seed string) models.Metrics {
	rng := rand.New(rand.NewSource(Seed(seed) + metricsOffset))

	return models.Metrics{
		AverageRating: round(3.2+rng.Float64()*1.8, 1),
		Reviews:       5 + rng.Intn(480-5+1),
		Sold:          rng.Intn(12000 + 1),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
