package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabienpiette/partfox/internal/testutil"
)

type suggesterFunc func(ctx context.Context, prefix string) []string

func (f suggesterFunc) Suggest(ctx context.Context, prefix string) []string {
	return f(ctx, prefix)
}

type receivedMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T, suggester Suggester) (*WebSocketHub, *httptest.Server) {
	t.Helper()

	hub := NewWebSocketHub(suggester, testutil.SetupTestLogger(t))
	go hub.Start()
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, "test-client")
	}))
	t.Cleanup(server.Close)

	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	conn := testutil.DialWebSocket(t, server, "/")
	msg := readMessage(t, conn)
	require.Equal(t, MessageTypeConnected, msg.Type)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) receivedMessage {
	t.Helper()

	var msg receivedMessage
	testutil.ReadWebSocketJSON(t, conn, 5*time.Second, &msg)
	return msg
}

func TestWebSocketHub_Autocomplete(t *testing.T) {
	var mu sync.Mutex
	var prefixes []string
	suggester := suggesterFunc(func(ctx context.Context, prefix string) []string {
		mu.Lock()
		prefixes = append(prefixes, prefix)
		mu.Unlock()
		return []string{"disco", "disco de freio"}
	})

	_, server := startHub(t, suggester)
	conn := dial(t, server)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "autocomplete", "prefix": " DIS "}))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSuggestions, msg.Type)

	var payload SuggestionsPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "dis", payload.Prefix)
	assert.Equal(t, []string{"disco", "disco de freio"}, payload.Suggestions)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"dis"}, prefixes)
}

func TestWebSocketHub_PingAndInvalidMessages(t *testing.T) {
	_, server := startHub(t, suggesterFunc(func(ctx context.Context, prefix string) []string {
		return []string{}
	}))
	conn := dial(t, server)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, MessageTypeError, readMessage(t, conn).Type)

	// Unknown types are ignored, the connection stays usable
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, MessageTypePong, readMessage(t, conn).Type)
}

func TestWebSocketHub_ClientLifecycle(t *testing.T) {
	hub, server := startHub(t, suggesterFunc(func(ctx context.Context, prefix string) []string {
		return []string{}
	}))

	conn := dial(t, server)
	testutil.WaitForCondition(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, "client registered")

	conn.Close()
	testutil.WaitForCondition(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, "client unregistered")
}

func TestWebSocketHub_CleanupInactiveClients(t *testing.T) {
	hub, server := startHub(t, suggesterFunc(func(ctx context.Context, prefix string) []string {
		return []string{}
	}))

	dial(t, server)
	testutil.WaitForCondition(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, "client registered")

	assert.Equal(t, 0, hub.cleanupInactiveClients(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, hub.cleanupInactiveClients(time.Now().Add(time.Hour)))
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestWebSocketHub_StopClosesClients(t *testing.T) {
	hub, server := startHub(t, suggesterFunc(func(ctx context.Context, prefix string) []string {
		return []string{}
	}))

	conn := dial(t, server)
	testutil.WaitForCondition(t, func() bool { return hub.GetClientCount() == 1 }, 2*time.Second, "client registered")

	hub.Stop()
	assert.Equal(t, 0, hub.GetClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// Stop is idempotent
	hub.Stop()
}
