package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fabienpiette/partfox/internal/models"
)

// MockCatalogClient provides a mock implementation of the catalog client
type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) QueryProducts(ctx context.Context, q models.ProductQuery) (*models.QueryResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *MockCatalogClient) QuerySummary(ctx context.Context, term string, page, pageSize int) (*models.QueryResult, error) {
	args := m.Called(ctx, term, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResult), args.Error(1)
}

func (m *MockCatalogClient) ListManufacturers(ctx context.Context) ([]models.Reference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reference), args.Error(1)
}

func (m *MockCatalogClient) ListFamilies(ctx context.Context) ([]models.Reference, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reference), args.Error(1)
}

func (m *MockCatalogClient) ListProductGroups(ctx context.Context) ([]models.ProductGroup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductGroup), args.Error(1)
}

// MockSearchHistoryRepository provides a mock implementation of SearchHistoryRepository
type MockSearchHistoryRepository struct {
	mock.Mock
}

func (m *MockSearchHistoryRepository) Create(ctx context.Context, entry *models.SearchHistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockSearchHistoryRepository) Recent(ctx context.Context, limit int) ([]*models.SearchHistoryEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SearchHistoryEntry), args.Error(1)
}

func (m *MockSearchHistoryRepository) Popular(ctx context.Context, limit int, days int) ([]*models.PopularSearch, error) {
	args := m.Called(ctx, limit, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PopularSearch), args.Error(1)
}

func (m *MockSearchHistoryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockHTTPServer provides a test HTTP server for external service testing.
// It records every request and answers with per-path handlers.
type MockHTTPServer struct {
	Server    *httptest.Server
	Requests  []MockHTTPRequest
	responses map[string]http.HandlerFunc
	mu        sync.RWMutex
}

type MockHTTPRequest struct {
	Method    string
	Path      string
	Headers   map[string]string
	Body      string
	Timestamp time.Time
}

// NewMockHTTPServer creates a new mock HTTP server
func NewMockHTTPServer() *MockHTTPServer {
	mockServer := &MockHTTPServer{
		Requests:  make([]MockHTTPRequest, 0),
		responses: make(map[string]http.HandlerFunc),
	}

	mockServer.Server = httptest.NewServer(http.HandlerFunc(mockServer.handler))
	return mockServer
}

// Close shuts down the mock server
func (m *MockHTTPServer) Close() {
	m.Server.Close()
}

// GetURL returns the base URL of the mock server
func (m *MockHTTPServer) GetURL() string {
	return m.Server.URL
}

// GetRequests returns all captured requests
func (m *MockHTTPServer) GetRequests() []MockHTTPRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	requests := make([]MockHTTPRequest, len(m.Requests))
	copy(requests, m.Requests)
	return requests
}

// ClearRequests clears all captured requests
func (m *MockHTTPServer) ClearRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = m.Requests[:0]
}

// SetResponse sets a custom response for a path
func (m *MockHTTPServer) SetResponse(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = handler
}

// SetJSON answers path with a fixed status and JSON body
func (m *MockHTTPServer) SetJSON(path string, status int, body string) {
	m.SetResponse(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (m *MockHTTPServer) handler(w http.ResponseWriter, r *http.Request) {
	body := ""
	if r.Body != nil {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			body = string(bodyBytes)
		}
	}

	headers := make(map[string]string)
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	m.mu.Lock()
	m.Requests = append(m.Requests, MockHTTPRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		Headers:   headers,
		Body:      body,
		Timestamp: time.Now(),
	})
	handler, exists := m.responses[r.URL.Path]
	m.mu.Unlock()

	if exists {
		handler(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"Not found"}`))
}

// CatalogMockServer creates a mock of the external catalog and its token
// endpoint (at /oauth/token) answering with the fixtures of this package
func CatalogMockServer() *MockHTTPServer {
	server := NewMockHTTPServer()

	server.SetJSON("/oauth/token", http.StatusOK, `{"access_token":"test-access-token","expires_in":3600}`)
	server.SetJSON("/catalogo/produtos/query", http.StatusOK, ProductPageJSON)
	server.SetJSON("/catalogo/v2/produtos/query/sumario", http.StatusOK, SummaryPageJSON)
	server.SetJSON("/veiculo/montadoras/query", http.StatusOK, `{"data":[{"id":2,"descricao":"VOLKSWAGEN"},{"id":1,"descricao":"FIAT"}]}`)
	server.SetJSON("/produto/familias/query", http.StatusOK, `{"data":[{"id":20,"descricao":"SUSPENSAO"},{"id":10,"descricao":"FREIOS"}]}`)
	server.SetJSON("/produto/ultimos-niveis/query", http.StatusOK,
		`{"data":[{"id":101,"descricao":"PASTILHA","familia":{"id":10}},{"id":100,"descricao":"DISCO","familia":{"id":10}},{"id":200,"descricao":"AMORTECEDOR","familia":{"id":20}}]}`)

	return server
}
