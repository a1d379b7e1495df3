package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/voxa-signaling/config"
	"github.com/mossy-p/voxa-signaling/internal/metrics"
	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/mossy-p/voxa-signaling/internal/relay"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Environment:    "test",
		AllowedOrigins: []string{"http://allowed.test"},
		JWTSecret:      "test-secret",
		AdminPassword:  "hunter2",
		MaxTagLength:   64,
		ReadLimit:      64 * 1024,
		SendBuffer:     16,
		PingPeriod:     time.Second,
		PongWait:       2 * time.Second,
		WriteWait:      time.Second,
	}
}

type testServer struct {
	*httptest.Server
	relay *relay.Relay
}

func newTestServer(t *testing.T, presence PresenceReader) *testServer {
	t.Helper()
	m := metrics.New()
	rl := relay.New(relay.Options{Logger: zerolog.Nop(), Observer: m})
	router := NewRouter(Deps{Config: testConfig(), Relay: rl, Metrics: m, Presence: presence})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, relay: rl}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *testServer) waitFor(t *testing.T, cond func(models.RelayStats) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(s.relay.Stats())
	}, 2*time.Second, 5*time.Millisecond)
}

func writeJSON(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func readRaw(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func do(t *testing.T, method, url, token string, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
