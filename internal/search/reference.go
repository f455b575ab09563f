package search

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/fabienpiette/partfox/internal/models"
)

const referenceKeyPrefix = "reference:"

// Manufacturers returns the vehicle manufacturers sorted by name
func (s *Service) Manufacturers(ctx context.Context) ([]models.Reference, error) {
	return loadReference(ctx, s, "manufacturers", func(ctx context.Context) ([]models.Reference, error) {
		refs, err := s.catalog.ListManufacturers(ctx)
		if err != nil {
			return nil, err
		}
		return sortReferences(refs), nil
	})
}

// Families returns the product families sorted by name
func (s *Service) Families(ctx context.Context) ([]models.Reference, error) {
	return loadReference(ctx, s, "families", func(ctx context.Context) ([]models.Reference, error) {
		refs, err := s.catalog.ListFamilies(ctx)
		if err != nil {
			return nil, err
		}
		return sortReferences(refs), nil
	})
}

// Subfamilies returns the last-level groups of a family sorted by name
func (s *Service) Subfamilies(ctx context.Context, familyID int) ([]models.Reference, error) {
	groups, err := s.productGroups(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]models.Reference, 0)
	for _, group := range groups {
		if group.FamilyID != nil && *group.FamilyID == familyID {
			refs = append(refs, models.Reference{ID: group.ID, Name: group.Description})
		}
	}
	return sortReferences(refs), nil
}

func (s *Service) productGroups(ctx context.Context) ([]models.ProductGroup, error) {
	return loadReference(ctx, s, "product_groups", s.catalog.ListProductGroups)
}

// Warm loads every reference list concurrently. Failures are logged and
// reported, the lists are fetched again on first use.
func (s *Service) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := s.Manufacturers(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Families(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.productGroups(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.WithError(err).Warn("Reference data warm-up failed")
		return err
	}
	s.logger.Info("Reference data warmed up")
	return nil
}

// loadReference reads a reference list from the result cache or fetches it,
// collapsing concurrent misses into a single catalog call
func loadReference[T any](ctx context.Context, s *Service, name string, fetch func(context.Context) (T, error)) (T, error) {
	key := referenceKeyPrefix + name

	if s.cache != nil {
		var cached T
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Reference cache read failed")
		}
		if found {
			return cached, nil
		}
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		ctx, cancel := detached(ctx)
		defer cancel()

		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, value, s.opts.ReferenceCacheTTL); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("Reference cache write failed")
			}
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	s.logger.WithFields(logrus.Fields{"key": key, "shared": shared}).Debug("Reference data fetched")
	return v.(T), nil
}

func sortReferences(refs []models.Reference) []models.Reference {
	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].Name < refs[j].Name
	})
	return refs
}
