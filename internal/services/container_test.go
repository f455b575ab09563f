package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/testutil"
)

func TestNewContainer(t *testing.T) {
	catalog := testutil.CatalogMockServer()
	defer catalog.Close()

	cfg := testutil.GetTestConfig(t, catalog.GetURL())
	container, err := NewContainer(testutil.SetupTestDB(t), nil, cfg)
	require.NoError(t, err)

	assert.NotNil(t, container.GetSearchService())
	assert.NotNil(t, container.GetSearchHistoryRepository())
	assert.NotNil(t, container.GetWebSocketHub())
	assert.Equal(t, cfg, container.GetConfig())

	token, err := container.GetTokenSource().Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-static-token", token)
}

func TestNewContainer_WithoutDatabase(t *testing.T) {
	cfg := testutil.GetTestConfig(t, "http://localhost:1")
	container, err := NewContainer(nil, nil, cfg)
	require.NoError(t, err)

	assert.Nil(t, container.GetSearchHistoryRepository())
	assert.Equal(t, int64(0), container.PruneHistory(context.Background()))
}

func TestNewContainer_InvalidSimilarity(t *testing.T) {
	cfg := testutil.GetTestConfig(t, "http://localhost:1")
	cfg.Autocomplete.Similarity = "soundex"

	_, err := NewContainer(nil, nil, cfg)
	assert.Error(t, err)
}

func TestContainer_ClientCredentials(t *testing.T) {
	catalog := testutil.CatalogMockServer()
	defer catalog.Close()

	cfg := testutil.GetTestConfig(t, catalog.GetURL())
	cfg.Catalog.StaticToken = ""
	cfg.Catalog.TokenURL = catalog.GetURL() + "/oauth/token"
	cfg.Catalog.ClientID = "client"
	cfg.Catalog.ClientSecret = "secret"

	container, err := NewContainer(nil, nil, cfg)
	require.NoError(t, err)

	token, err := container.GetTokenSource().Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-access-token", token)
}

func TestContainer_HealthCheck(t *testing.T) {
	catalog := testutil.CatalogMockServer()
	defer catalog.Close()

	container, err := NewContainer(testutil.SetupTestDB(t), nil, testutil.GetTestConfig(t, catalog.GetURL()))
	require.NoError(t, err)

	health := container.HealthCheck(context.Background())
	assert.Equal(t, "healthy", health["status"])

	services := health["services"].(map[string]interface{})
	assert.Contains(t, services, "database")
	assert.Contains(t, services, "cache")
	assert.Equal(t, "healthy", services["catalog_auth"].(map[string]interface{})["status"])
}

func TestContainer_HealthCheck_CatalogAuthFailure(t *testing.T) {
	catalog := testutil.CatalogMockServer()
	defer catalog.Close()
	catalog.SetJSON("/oauth/token", http.StatusUnauthorized, `{"error":"invalid_client"}`)

	cfg := testutil.GetTestConfig(t, catalog.GetURL())
	cfg.Catalog.StaticToken = ""
	cfg.Catalog.TokenURL = catalog.GetURL() + "/oauth/token"

	container, err := NewContainer(nil, nil, cfg)
	require.NoError(t, err)

	health := container.HealthCheck(context.Background())
	assert.Equal(t, "degraded", health["status"])

	services := health["services"].(map[string]interface{})
	assert.Equal(t, "unhealthy", services["catalog_auth"].(map[string]interface{})["status"])
}

func TestContainer_GetMetrics(t *testing.T) {
	container, err := NewContainer(nil, nil, testutil.GetTestConfig(t, "http://localhost:1"))
	require.NoError(t, err)

	metrics := container.GetMetrics(context.Background())
	assert.Equal(t, Version, metrics["version"])
	assert.Contains(t, metrics, "uptime")
	assert.Contains(t, metrics, "search")
	assert.Contains(t, metrics, "autocomplete")
	assert.Equal(t, 0, metrics["websocket"].(map[string]interface{})["clients"])
}

func TestContainer_PruneHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig(t, "http://localhost:1")
	cfg.Search.HistoryRetention = 7

	container, err := NewContainer(db, nil, cfg)
	require.NoError(t, err)

	ctx := context.Background()
	repo := container.GetSearchHistoryRepository()
	require.NoError(t, repo.Create(ctx, &models.SearchHistoryEntry{
		Query: "disco", Mode: models.SearchModeTerm, Status: models.SearchStatusOK,
		SearchedAt: time.Now().UTC().AddDate(0, 0, -30),
	}))
	require.NoError(t, repo.Create(ctx, &models.SearchHistoryEntry{
		Query: "pastilha", Mode: models.SearchModeTerm, Status: models.SearchStatusOK,
	}))

	assert.Equal(t, int64(1), container.PruneHistory(ctx))

	recent, err := repo.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "pastilha", recent[0].Query)
}

func TestContainer_StartStop(t *testing.T) {
	catalog := testutil.CatalogMockServer()
	defer catalog.Close()

	container, err := NewContainer(testutil.SetupTestDB(t), nil, testutil.GetTestConfig(t, catalog.GetURL()))
	require.NoError(t, err)

	container.Start()

	// Reference data is warmed in the background
	testutil.WaitForCondition(t, func() bool {
		for _, req := range catalog.GetRequests() {
			if req.Path == "/produto/ultimos-niveis/query" {
				return true
			}
		}
		return false
	}, 5*time.Second, "reference data warmed")

	done := make(chan struct{})
	go func() {
		container.Stop()
		container.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("container did not stop")
	}
}
