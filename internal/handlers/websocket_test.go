package handlers

import (
	"encoding/json"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocket_CallScenario(t *testing.T) {
	srv := newTestServer(t, nil)
	x, y := srv.dial(t), srv.dial(t)
	srv.waitFor(t, func(s models.RelayStats) bool { return s.Connections == 2 })

	writeJSON(t, x, `{"type":"join","tag":"hindi"}`)
	srv.waitFor(t, func(s models.RelayStats) bool { return s.Waiting["hindi"] == 1 })
	writeJSON(t, y, `{"type":"join","tag":"hindi"}`)

	var xMatch, yMatch models.SignalMessage
	require.NoError(t, json.Unmarshal([]byte(readRaw(t, x)), &xMatch))
	require.NoError(t, json.Unmarshal([]byte(readRaw(t, y)), &yMatch))
	assert.Equal(t, models.SignalTypeMatch, xMatch.Type)
	assert.Equal(t, models.RoleInitiator, xMatch.Role)
	assert.Equal(t, models.RoleResponder, yMatch.Role)
	assert.Equal(t, xMatch.SessionID, yMatch.SessionID)

	writeJSON(t, x, `{"type":"offer","payload":{"sdp":"v=0..."}}`)
	assert.JSONEq(t, `{"type":"offer","payload":{"sdp":"v=0..."}}`, readRaw(t, y))

	writeJSON(t, y, `{"type":"answer","payload":{"sdp":"v=0..."}}`)
	assert.JSONEq(t, `{"type":"answer","payload":{"sdp":"v=0..."}}`, readRaw(t, x))

	writeJSON(t, y, `{"type":"candidate","payload":{"candidate":"candidate:1 1 udp 2122260223 10.0.0.2 54321 typ host","sdpMid":"0","sdpMLineIndex":0}}`)
	assert.JSONEq(t,
		`{"type":"candidate","payload":{"candidate":"candidate:1 1 udp 2122260223 10.0.0.2 54321 typ host","sdpMid":"0","sdpMLineIndex":0}}`,
		readRaw(t, x))

	require.NoError(t, x.Close())
	assert.JSONEq(t, `{"type":"peer-left"}`, readRaw(t, y))
	srv.waitFor(t, func(s models.RelayStats) bool {
		return s.Connections == 1 && s.ActiveSessions == 0
	})
}

func TestWebSocket_ErrorsAreReportedToSenderOnly(t *testing.T) {
	srv := newTestServer(t, nil)
	a, b := srv.dial(t), srv.dial(t)

	writeJSON(t, a, `{"type":"join","tag":"english"}`)
	srv.waitFor(t, func(s models.RelayStats) bool { return s.Waiting["english"] == 1 })
	writeJSON(t, b, `{"type":"join","tag":"english"}`)
	readRaw(t, a)
	readRaw(t, b)

	writeJSON(t, a, `not json at all`)
	assert.JSONEq(t, `{"type":"error","error":"invalid_message"}`, readRaw(t, a))

	writeJSON(t, a, `{"type":"join","tag":"english"}`)
	assert.JSONEq(t, `{"type":"error","error":"duplicate_join"}`, readRaw(t, a))

	// the connection survives and b saw none of it
	writeJSON(t, a, `{"type":"offer","payload":{"sdp":"o"}}`)
	assert.JSONEq(t, `{"type":"offer","payload":{"sdp":"o"}}`, readRaw(t, b))
}

func TestWebSocket_NoActiveSession(t *testing.T) {
	srv := newTestServer(t, nil)
	a := srv.dial(t)

	writeJSON(t, a, `{"type":"candidate","payload":{"candidate":""}}`)
	assert.JSONEq(t, `{"type":"error","error":"no_active_session"}`, readRaw(t, a))
}

func TestWebSocket_LeaveThenRejoin(t *testing.T) {
	srv := newTestServer(t, nil)
	a, b, c := srv.dial(t), srv.dial(t), srv.dial(t)

	writeJSON(t, a, `{"type":"join","tag":"english"}`)
	srv.waitFor(t, func(s models.RelayStats) bool { return s.Waiting["english"] == 1 })
	writeJSON(t, b, `{"type":"join","tag":"english"}`)
	readRaw(t, a)
	readRaw(t, b)

	writeJSON(t, a, `{"type":"leave"}`)
	assert.JSONEq(t, `{"type":"peer-left"}`, readRaw(t, b))

	writeJSON(t, b, `{"type":"join"}`)
	srv.waitFor(t, func(s models.RelayStats) bool { return s.Waiting["english"] == 1 })
	writeJSON(t, c, `{"type":"join","tag":"english"}`)

	var match models.SignalMessage
	require.NoError(t, json.Unmarshal([]byte(readRaw(t, b)), &match))
	assert.Equal(t, models.RoleInitiator, match.Role)
}

func TestWebSocket_DisallowedOrigin(t *testing.T) {
	srv := newTestServer(t, nil)
	wsURL := "ws" + srv.URL[len("http"):] + "/ws"

	header := map[string][]string{"Origin": {"http://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)

	header = map[string][]string{"Origin": {"http://allowed.test"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	_ = conn.Close()
}

func TestClient_TrySend(t *testing.T) {
	c := &Client{Send: make(chan []byte, 1)}

	require.NoError(t, c.TrySend([]byte("a")))
	assert.ErrorIs(t, c.TrySend([]byte("b")), ErrBufferFull)

	c.close()
	c.close()
	assert.ErrorIs(t, c.TrySend([]byte("c")), ErrClientClosed)
}
