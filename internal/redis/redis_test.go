package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabienpiette/partfox/internal/models"
	"github.com/fabienpiette/partfox/internal/testutil"
)

func TestClient_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	rdb, cleanup := testutil.SetupTestRedis(t)
	defer cleanup()

	client := NewClient(rdb)
	ctx := context.Background()

	stored := models.CachedSearch{
		Items:    []models.NormalizedItem{{Name: "Pastilha de Freio", Brand: "COBREQ", Price: 129.9}},
		Message:  "Resultados para 'pastilha'.",
		StoredAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, client.Set(ctx, "search:results:abc", stored, time.Minute))

	var loaded models.CachedSearch
	found, err := client.Get(ctx, "search:results:abc", &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, stored.Message, loaded.Message)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "COBREQ", loaded.Items[0].Brand)
	assert.True(t, stored.StoredAt.Equal(loaded.StoredAt))

	ttl, err := rdb.TTL(ctx, "search:results:abc").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)

	found, err = client.Get(ctx, "search:results:missing", &loaded)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.DeleteKeys(ctx, "search:results:abc"))
	found, err = client.Get(ctx, "search:results:abc", &loaded)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, client.Health(ctx))
}

func TestClient_GetUndecodableValue(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	rdb, cleanup := testutil.SetupTestRedis(t)
	defer cleanup()

	client := NewClient(rdb)
	ctx := context.Background()
	require.NoError(t, rdb.Set(ctx, "reference:families", "not json", time.Minute).Err())

	var refs []models.Reference
	found, err := client.Get(ctx, "reference:families", &refs)
	assert.Error(t, err)
	assert.False(t, found)
}
