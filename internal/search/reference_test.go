package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fabienpiette/partfox/internal/cache"
	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/testutil"
)

func TestService_Manufacturers_SortedAndCached(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListManufacturers", mock.Anything).Return([]models.Reference{
		{ID: 3, Name: "VOLKSWAGEN"},
		{ID: 1, Name: "CHEVROLET"},
		{ID: 2, Name: "FIAT"},
	}, nil).Once()

	s := newTestService(t, client, cache.NewMemoryCache(8), nil)

	refs, err := s.Manufacturers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHEVROLET", "FIAT", "VOLKSWAGEN"}, referenceNames(refs))

	again, err := s.Manufacturers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CHEVROLET", "FIAT", "VOLKSWAGEN"}, referenceNames(again))

	client.AssertExpectations(t)
}

func TestService_Families_Error(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListFamilies", mock.Anything).Return(nil, upstreamErr(models.UpstreamHTTPError, 500)).Once()
	client.On("ListFamilies", mock.Anything).Return([]models.Reference{{ID: 10, Name: "FREIOS"}}, nil).Once()

	s := newTestService(t, client, cache.NewMemoryCache(8), nil)

	_, err := s.Families(context.Background())
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)

	// failures are not cached
	refs, err := s.Families(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"FREIOS"}, referenceNames(refs))
}

func TestService_Subfamilies(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListProductGroups", mock.Anything).Return([]models.ProductGroup{
		{ID: 101, Description: "PASTILHA", FamilyID: intPtr(10)},
		{ID: 100, Description: "DISCO", FamilyID: intPtr(10)},
		{ID: 200, Description: "AMORTECEDOR", FamilyID: intPtr(20)},
		{ID: 300, Description: "SEM FAMILIA"},
	}, nil).Once()

	s := newTestService(t, client, nil, nil)

	refs, err := s.Subfamilies(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"DISCO", "PASTILHA"}, referenceNames(refs))
	client.AssertExpectations(t)
}

func TestService_Subfamilies_UnknownFamily(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListProductGroups", mock.Anything).Return([]models.ProductGroup{
		{ID: 200, Description: "AMORTECEDOR", FamilyID: intPtr(20)},
	}, nil)

	s := newTestService(t, client, nil, nil)

	refs, err := s.Subfamilies(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestService_Warm(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListManufacturers", mock.Anything).Return([]models.Reference{{ID: 1, Name: "FIAT"}}, nil).Once()
	client.On("ListFamilies", mock.Anything).Return([]models.Reference{{ID: 10, Name: "FREIOS"}}, nil).Once()
	client.On("ListProductGroups", mock.Anything).Return([]models.ProductGroup{{ID: 100, Description: "DISCO", FamilyID: intPtr(10)}}, nil).Once()

	s := newTestService(t, client, cache.NewMemoryCache(8), nil)
	require.NoError(t, s.Warm(context.Background()))

	// served from cache afterwards
	refs, err := s.Subfamilies(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"DISCO"}, referenceNames(refs))
	client.AssertExpectations(t)
}

func TestService_Warm_ReportsFailure(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListManufacturers", mock.Anything).Return([]models.Reference{}, nil)
	client.On("ListFamilies", mock.Anything).Return(nil, upstreamErr(models.UpstreamTimeout, 0))
	client.On("ListProductGroups", mock.Anything).Return([]models.ProductGroup{}, nil)

	s := newTestService(t, client, nil, nil)
	assert.Error(t, s.Warm(context.Background()))
}

func TestService_References_ConcurrentCallers(t *testing.T) {
	client := new(testutil.MockCatalogClient)
	client.On("ListFamilies", mock.Anything).Return([]models.Reference{{ID: 10, Name: "FREIOS"}}, nil).After(20 * time.Millisecond)

	s := newTestService(t, client, cache.NewMemoryCache(8), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refs, err := s.Families(context.Background())
			assert.NoError(t, err)
			assert.Len(t, refs, 1)
		}()
	}
	wg.Wait()

	// singleflight plus the cache keep the catalog calls well below the caller count
	calls := 0
	for _, c := range client.Calls {
		if c.Method == "ListFamilies" {
			calls++
		}
	}
	assert.Less(t, calls, 20)
	assert.GreaterOrEqual(t, calls, 1)
}

func referenceNames(refs []models.Reference) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

func TestService_Manufacturers_CallerCancellationDoesNotReachCatalog(t *testing.T) {
	live := mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })
	client := new(testutil.MockCatalogClient)
	client.On("ListManufacturers", live).Return([]models.Reference{{ID: 2, Name: "FIAT"}}, nil).Once()

	s := newTestService(t, client, cache.NewMemoryCache(8), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	refs, err := s.Manufacturers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"FIAT"}, referenceNames(refs))
	client.AssertExpectations(t)
}
