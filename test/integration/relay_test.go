// Package integration exercises the full relay over real HTTP and WebSocket
// connections: register, log in, connect, chat, and disconnect.
package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuschat/relay/internal/bot"
	"github.com/nexuschat/relay/internal/config"
	"github.com/nexuschat/relay/internal/httpapi"
	"github.com/nexuschat/relay/internal/relay"
	"github.com/nexuschat/relay/internal/store"
)

type testServer struct {
	http     *httptest.Server
	registry *relay.Registry
	store    *store.Store
}

func startServer(t *testing.T, botEnabled bool) *testServer {
	t.Helper()

	st, err := store.Open(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Config{
		AllowedOrigins: []string{"*"},
		RateLimitBurst: 100,
	}
	cfg.Sanitize()

	registry := relay.NewRegistry(zerolog.Nop())
	caster := relay.NewBroadcaster(registry, zerolog.Nop())

	var responder *bot.Bot
	if botEnabled {
		responder = bot.New(caster, st, zerolog.Nop())
	}

	api := httpapi.New(cfg, st, registry, caster, responder, zerolog.Nop())
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	return &testServer{http: server, registry: registry, store: st}
}

func (ts *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
}

// registerAndLogin creates the account and returns the session token.
func registerAndLogin(t *testing.T, ts *testServer, username, password string) string {
	t.Helper()

	creds, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(ts.http.URL+"/register", "application/json", bytes.NewReader(creds))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.http.URL+"/login", "application/json", bytes.NewReader(creds))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == httpapi.SessionCookie {
			return c.Value
		}
	}
	t.Fatal("login response carried no session cookie")
	return ""
}

// dial opens a WebSocket, optionally presenting a session token.
func dial(t *testing.T, ts *testServer, token string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	if token != "" {
		header.Set("Cookie", httpapi.SessionCookie+"="+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(), header)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForMembers(t *testing.T, registry *relay.Registry, atLeast int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for registry.Len() < atLeast && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestAuthenticatedChatFlow(t *testing.T) {
	ts := startServer(t, false)

	token := registerAndLogin(t, ts, "alice", "a long password")
	alice := dial(t, ts, token)
	bob := dial(t, ts, "")
	waitForMembers(t, ts.registry, 2)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("hi")))

	// Every member receives the frame, the sender included.
	assert.Equal(t, "alice says: hi", readFrame(t, alice))
	assert.Equal(t, "alice says: hi", readFrame(t, bob))

	// The message was persisted with its author.
	msgs, err := ts.store.RecentMessages(0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "alice", msgs[0].Author)
}

func TestAnonymousChatFlow(t *testing.T) {
	ts := startServer(t, false)

	anon := dial(t, ts, "")
	waitForMembers(t, ts.registry, 1)

	require.NoError(t, anon.WriteMessage(websocket.TextMessage, []byte("yo")))
	assert.Equal(t, "Anonymous says: yo", readFrame(t, anon))

	msgs, err := ts.store.RecentMessages(0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Author)
}

func TestInvalidTokenDegradesToAnonymous(t *testing.T) {
	ts := startServer(t, false)

	conn := dial(t, ts, "not-a-valid-token")
	waitForMembers(t, ts.registry, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("yo")))
	assert.Equal(t, "Anonymous says: yo", readFrame(t, conn))
}

func TestDepartureNotice(t *testing.T) {
	ts := startServer(t, false)

	token := registerAndLogin(t, ts, "alice", "a long password")
	alice := dial(t, ts, token)
	bob := dial(t, ts, "")
	waitForMembers(t, ts.registry, 2)

	require.NoError(t, alice.Close())

	assert.Equal(t, "alice has disconnected.", readFrame(t, bob))

	deadline := time.Now().Add(2 * time.Second)
	for ts.registry.Len() > 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, ts.registry.Len(), "departed handle must leave the registry")
}

func TestMessageOrderPreserved(t *testing.T) {
	ts := startServer(t, false)

	token := registerAndLogin(t, ts, "alice", "a long password")
	alice := dial(t, ts, token)
	bob := dial(t, ts, "")
	waitForMembers(t, ts.registry, 2)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("a")))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("b")))

	assert.Equal(t, "alice says: a", readFrame(t, bob))
	assert.Equal(t, "alice says: b", readFrame(t, bob))
}

func TestBotRepliesToChat(t *testing.T) {
	ts := startServer(t, true)

	conn := dial(t, ts, "")
	waitForMembers(t, ts.registry, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	assert.Equal(t, "Anonymous says: hello", readFrame(t, conn))
	assert.Equal(t, "ChatBot says: Hello Anonymous, how can I assist you?", readFrame(t, conn))
}
