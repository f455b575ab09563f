package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/fabienpiette/partfox/internal/catalog"
	"github.com/fabienpiette/partfox/internal/models"
)

// lookupAttempt is one query tried while resolving a product detail
type lookupAttempt struct {
	name    string
	filter  models.ProductFilter
	summary string
}

// ProductDetail resolves one product by reference code, name or id. Attempts
// run from the most to the least precise and the first one with records wins.
func (s *Service) ProductDetail(ctx context.Context, lookup models.ProductLookup) (*models.ProductDetailResponse, error) {
	lookup.Name = strings.TrimSpace(lookup.Name)
	lookup.ReferenceCode = strings.TrimSpace(lookup.ReferenceCode)
	lookup.Brand = strings.TrimSpace(lookup.Brand)

	if lookup.IsEmpty() {
		return nil, fmt.Errorf("%w: informe 'id', 'nomeProduto' ou 'codigoReferencia'", models.ErrInvalidInput)
	}

	attempts := detailAttempts(lookup)
	var (
		lastErr  error
		failures int
	)

	for _, attempt := range attempts {
		records, err := s.runAttempt(ctx, attempt)
		if err != nil {
			failures++
			lastErr = err
			s.logger.WithError(err).WithField("attempt", attempt.name).Warn("Product detail attempt failed")
			continue
		}
		if len(records) == 0 {
			continue
		}

		rec, ok := catalog.ChooseRecord(records, lookup)
		if !ok {
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"attempt": attempt.name,
			"records": len(records),
		}).Debug("Product detail resolved")
		return buildDetail(rec), nil
	}

	if failures == len(attempts) {
		return nil, lastErr
	}
	return nil, models.ErrProductNotFound
}

func (s *Service) runAttempt(ctx context.Context, attempt lookupAttempt) ([]models.RawRecord, error) {
	var (
		result *models.QueryResult
		err    error
	)
	if attempt.summary != "" {
		result, err = s.catalog.QuerySummary(ctx, attempt.summary, 0, s.opts.DetailPageSize)
	} else {
		result, err = s.catalog.QueryProducts(ctx, models.ProductQuery{Product: attempt.filter, PageSize: s.opts.DetailPageSize})
	}
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// detailAttempts lists the lookups in order: reference code, name, id, then
// a summary search by name or code. Ids alone never go to the summary search.
func detailAttempts(lookup models.ProductLookup) []lookupAttempt {
	var attempts []lookupAttempt

	if lookup.ReferenceCode != "" {
		attempts = append(attempts, lookupAttempt{
			name:   "reference_code",
			filter: models.ProductFilter{ReferenceCode: lookup.ReferenceCode, ManufacturerName: lookup.Brand},
		})
	}
	if lookup.Name != "" {
		attempts = append(attempts, lookupAttempt{
			name:   "name",
			filter: models.ProductFilter{Name: lookup.Name, ManufacturerName: lookup.Brand},
		})
	}
	if lookup.ID != nil && *lookup.ID != 0 {
		id := *lookup.ID
		attempts = append(attempts, lookupAttempt{
			name:   "id",
			filter: models.ProductFilter{ID: &id, ManufacturerName: lookup.Brand},
		})
	}

	term := lookup.Name
	if term == "" {
		term = lookup.ReferenceCode
	}
	if term != "" {
		attempts = append(attempts, lookupAttempt{name: "summary", summary: term})
	}
	return attempts
}

func buildDetail(rec models.RawRecord) *models.ProductDetailResponse {
	item := catalog.ProcessItem(rec.Data)
	if item.Score == nil {
		item.Score = rec.Score
	}
	return &models.ProductDetailResponse{
		Item:     item,
		Similars: catalog.ProcessSimilars(rec.Data),
	}
}
