package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/fabienpiette/partfox/internal/config"
	"github.com/fabienpiette/partfox/internal/models"
)

type fakeTokens struct {
	tokens      []string
	calls       int32
	invalidated int32
	err         error
}

func (f *fakeTokens) Token(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	n := int(atomic.AddInt32(&f.calls, 1)) - 1
	if n >= len(f.tokens) {
		n = len(f.tokens) - 1
	}
	return f.tokens[n], nil
}

func (f *fakeTokens) Invalidate() {
	atomic.AddInt32(&f.invalidated, 1)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens *fakeTokens) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client := NewClient(config.CatalogConfig{
		BaseURL:           server.URL,
		TimeoutSeconds:    2,
		RateLimitRequests: 1000,
		RateLimitWindow:   1,
		RetryCount:        2,
	}, tokens, logger)
	client.backoff = time.Millisecond
	return client
}

func TestClient_QueryProducts(t *testing.T) {
	var received map[string]interface{}
	tokens := &fakeTokens{tokens: []string{"tok"}}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathProductQuery, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		fmt.Fprint(w, `{"pageResult":{"data":[
			{"data":{"id":1,"nomeProduto":"Disco de Freio"},"score":0.9},
			{"id":2,"nomeProduto":"Pastilha de Freio"}
		],"totalCount":40}}`)
	}, tokens)

	familyID := 12
	result, err := client.QueryProducts(context.Background(), models.ProductQuery{
		Product:  models.ProductFilter{Name: "freio", FamilyID: &familyID},
		Vehicle:  models.VehicleFilter{Plate: "ABC1D23"},
		Page:     0,
		PageSize: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"nomeProduto": "freio", "familiaId": float64(12)}, received["produtoFiltro"])
	assert.Equal(t, map[string]interface{}{"veiculoPlaca": "ABC1D23"}, received["veiculoFiltro"])
	assert.Equal(t, float64(0), received["pagina"])
	assert.Equal(t, float64(500), received["itensPorPagina"])

	require.Len(t, result.Records, 2)
	assert.Equal(t, 40, result.TotalCount)

	assert.True(t, result.Records[0].Wrapped)
	require.NotNil(t, result.Records[0].Score)
	assert.Equal(t, 0.9, *result.Records[0].Score)
	assert.Equal(t, "Disco de Freio", result.Records[0].Data["nomeProduto"])

	assert.False(t, result.Records[1].Wrapped)
	assert.Nil(t, result.Records[1].Score)
	assert.Equal(t, json.Number("2"), result.Records[1].Data["id"])
}

func TestClient_EmptyFiltersAndBody(t *testing.T) {
	var raw string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		raw = string(b)
		w.WriteHeader(http.StatusNoContent)
	}, &fakeTokens{tokens: []string{"tok"}})

	result, err := client.QueryProducts(context.Background(), models.ProductQuery{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Equal(t, 0, result.TotalCount)
	assert.Contains(t, raw, `"produtoFiltro":{}`)
	assert.Contains(t, raw, `"veiculoFiltro":{}`)
}

func TestClient_QuerySummary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathSummaryQuery, r.URL.Path)
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "disco", body["superbusca"])
		assert.Equal(t, float64(20), body["itensPorPagina"])
		fmt.Fprint(w, `{"pageResult":{"data":[{"data":{"id":7,"nomeProduto":"Disco"},"score":3.5}]}}`)
	}, &fakeTokens{tokens: []string{"tok"}})

	result, err := client.QuerySummary(context.Background(), "disco", 0, 20)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 1, result.TotalCount)
}

func TestClient_ReferenceLists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch r.URL.Path {
		case PathManufacturers:
			assert.Equal(t, float64(500), body["itensPorPagina"])
			fmt.Fprint(w, `{"data":[{"id":1,"descricao":"VOLKSWAGEN"},{"id":2,"descricao":"FIAT"}]}`)
		case PathFamilies:
			assert.Equal(t, float64(1000), body["itensPorPagina"])
			fmt.Fprint(w, `{"data":[{"id":10,"descricao":"FREIOS"}]}`)
		case PathProductGroups:
			fmt.Fprint(w, `{"data":[{"id":100,"descricao":"DISCO","familia":{"id":10}},{"id":101,"descricao":"AVULSO"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, &fakeTokens{tokens: []string{"tok"}})

	ctx := context.Background()

	manufacturers, err := client.ListManufacturers(ctx)
	require.NoError(t, err)
	require.Len(t, manufacturers, 2)
	assert.Equal(t, "VOLKSWAGEN", manufacturers[0].Name)

	families, err := client.ListFamilies(ctx)
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "FREIOS", families[0].Name)

	groups, err := client.ListProductGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.NotNil(t, groups[0].FamilyID)
	assert.Equal(t, 10, *groups[0].FamilyID)
	assert.Nil(t, groups[1].FamilyID)
}

func TestClient_RenewsTokenOnceOn401(t *testing.T) {
	var calls int32
	tokens := &fakeTokens{tokens: []string{"stale", "fresh"}}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"pageResult":{"data":[]}}`)
	}, tokens)

	_, err := client.QuerySummary(context.Background(), "x", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokens.invalidated))
}

func TestClient_Persistent401(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, &fakeTokens{tokens: []string{"tok"}})

	_, err := client.QuerySummary(context.Background(), "x", 0, 10)
	require.Error(t, err)
	assert.Equal(t, models.UpstreamUnauthorized, models.UpstreamKind(err))
	assert.True(t, errors.Is(err, models.ErrUpstreamUnavailable))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		status    int
		wantErr   bool
		wantCalls int32
	}{
		{"recovers after 503", 1, http.StatusServiceUnavailable, false, 2},
		{"recovers after two 429", 2, http.StatusTooManyRequests, false, 3},
		{"gives up after retry budget", 5, http.StatusBadGateway, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) <= tt.failures {
					w.WriteHeader(tt.status)
					return
				}
				fmt.Fprint(w, `{"pageResult":{"data":[{"id":1}]}}`)
			}, &fakeTokens{tokens: []string{"tok"}})

			result, err := client.QueryProducts(context.Background(), models.ProductQuery{PageSize: 1})
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
			if tt.wantErr {
				require.Error(t, err)
				var upErr *models.UpstreamError
				require.True(t, errors.As(err, &upErr))
				assert.Equal(t, models.UpstreamHTTPError, upErr.Kind)
				assert.Equal(t, tt.status, upErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Len(t, result.Records, 1)
		})
	}
}

func TestClient_EveryAttemptIsRateLimited(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusUnauthorized)
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			fmt.Fprint(w, `{"pageResult":{"data":[]}}`)
		}
	}, &fakeTokens{tokens: []string{"stale", "fresh"}})
	client.limiter = rate.NewLimiter(rate.Every(time.Hour), 10)

	_, err := client.QueryProducts(context.Background(), models.ProductQuery{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.InDelta(t, 7, client.limiter.Tokens(), 0.01)
}

func TestClient_RateLimitedRetryHonoursDeadline(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, &fakeTokens{tokens: []string{"tok"}})
	client.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.QueryProducts(ctx, models.ProductQuery{PageSize: 1})
	require.Error(t, err)
	assert.Equal(t, models.UpstreamTransport, models.UpstreamKind(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_ErrorKinds(t *testing.T) {
	t.Run("client error is not retried", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}, &fakeTokens{tokens: []string{"tok"}})

		_, err := client.QueryProducts(context.Background(), models.ProductQuery{})
		assert.Equal(t, models.UpstreamHTTPError, models.UpstreamKind(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("malformed json", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"pageResult":`)
		}, &fakeTokens{tokens: []string{"tok"}})

		_, err := client.QueryProducts(context.Background(), models.ProductQuery{})
		assert.Equal(t, models.UpstreamMalformed, models.UpstreamKind(err))
	})

	t.Run("timeout", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}, &fakeTokens{tokens: []string{"tok"}})
		client.httpClient.Timeout = 20 * time.Millisecond
		client.retryCount = 0

		_, err := client.QueryProducts(context.Background(), models.ProductQuery{})
		assert.Equal(t, models.UpstreamTimeout, models.UpstreamKind(err))
	})

	t.Run("token unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("catalog must not be called without a token")
		}, &fakeTokens{err: models.ErrTokenUnavailable})

		_, err := client.QueryProducts(context.Background(), models.ProductQuery{})
		assert.Equal(t, models.UpstreamUnauthorized, models.UpstreamKind(err))
		assert.True(t, errors.Is(err, models.ErrTokenUnavailable))
	})
}
