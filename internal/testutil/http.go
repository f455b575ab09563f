package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/fabienpiette/partfox/internal/models"
)

// HTTPTestRequest represents a test HTTP request
type HTTPTestRequest struct {
	Method      string
	Path        string
	Headers     map[string]string
	QueryParams map[string]string
}

// HTTPTestResponse represents a test HTTP response
type HTTPTestResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// MakeRequest serves req through handler and returns the recorded response
func MakeRequest(t *testing.T, handler http.Handler, req HTTPTestRequest) *HTTPTestResponse {
	t.Helper()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq := httptest.NewRequest(method, req.Path, nil)

	// Add query parameters
	if req.QueryParams != nil {
		q := httpReq.URL.Query()
		for key, value := range req.QueryParams {
			q.Add(key, value)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	// Add headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httpReq)

	return &HTTPTestResponse{
		StatusCode: w.Code,
		Body:       w.Body.Bytes(),
		Headers:    w.Header(),
	}
}

// Get is MakeRequest for a plain GET of path
func Get(t *testing.T, handler http.Handler, path string) *HTTPTestResponse {
	t.Helper()
	return MakeRequest(t, handler, HTTPTestRequest{Method: http.MethodGet, Path: path})
}

// AssertJSONResponse asserts the status and JSON content type, then decodes
// the body into target when it is not nil
func AssertJSONResponse(t *testing.T, resp *HTTPTestResponse, expectedStatus int, target interface{}) {
	t.Helper()

	require.Equal(t, expectedStatus, resp.StatusCode, resp.GetResponseString())
	require.Equal(t, "application/json; charset=utf-8", resp.Headers.Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(resp.Body, target)
		require.NoError(t, err, "Failed to unmarshal JSON response: %s", resp.GetResponseString())
	}
}

// AssertProblemResponse asserts a problem JSON error response and returns it
func AssertProblemResponse(t *testing.T, resp *HTTPTestResponse, expectedStatus int) *models.APIError {
	t.Helper()

	var problem models.APIError
	AssertJSONResponse(t, resp, expectedStatus, &problem)
	require.Equal(t, expectedStatus, problem.Status)
	require.NotEmpty(t, problem.Type)
	require.NotEmpty(t, problem.Timestamp)
	return &problem
}

// GetResponseString returns the response body as string
func (resp *HTTPTestResponse) GetResponseString() string {
	return string(resp.Body)
}

// DialWebSocket connects to path on an httptest server and closes the
// connection when the test ends
func DialWebSocket(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// ReadWebSocketJSON reads one JSON message, failing after timeout
func ReadWebSocketJSON(t *testing.T, conn *websocket.Conn, timeout time.Duration, dest interface{}) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	require.NoError(t, conn.ReadJSON(dest))
}
