package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

type wireEvent struct {
	Type  string                  `json:"type"`
	State entities.CanonicalState `json:"state"`
	Data  json.RawMessage         `json:"data"`
}

func startWS(t *testing.T, h *testHarness) string {
	t.Helper()
	ts := httptest.NewServer(h.handler)
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event wireEvent
	require.NoError(t, ws.ReadJSON(&event))
	return event
}

func TestWebSocket_InitFirst(t *testing.T) {
	h := newHarness(t, entities.NewCanonicalState("a\n---\nb", 4))
	url := startWS(t, h)

	ws := dial(t, url, nil)
	event := readEvent(t, ws)

	assert.Equal(t, ports.EventTypeInit, event.Type)
	assert.Equal(t, "a\n---\nb", event.State.Text)
	assert.Equal(t, 2, event.State.TotalSlides)
	assert.Equal(t, 4.0, event.State.Speed)

	assert.Eventually(t, func() bool { return h.registry.Count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestWebSocket_IngestFansOut(t *testing.T) {
	h := newHarness(t, entities.DefaultCanonicalState())
	url := startWS(t, h)

	clients := make([]*websocket.Conn, 3)
	for i := range clients {
		clients[i] = dial(t, url, nil)
		require.Equal(t, ports.EventTypeInit, readEvent(t, clients[i]).Type)
	}

	require.NoError(t, clients[0].WriteJSON(map[string]interface{}{
		"type":  "speed-update",
		"state": map[string]interface{}{"speed": 5, "totalSlides": 99},
	}))

	for i, ws := range clients {
		event := readEvent(t, ws)
		assert.Equal(t, ports.EventTypeSpeed, event.Type, "client %d", i)
		assert.Equal(t, 5.0, event.State.Speed, "client %d", i)
		assert.Equal(t, 1, event.State.TotalSlides, "totalSlides is derived, never taken from clients")
	}
	assert.Equal(t, 5.0, h.sync.Snapshot().Speed)
}

func TestWebSocket_InvalidFrameRepliesToSenderOnly(t *testing.T) {
	h := newHarness(t, entities.DefaultCanonicalState())
	url := startWS(t, h)

	sender := dial(t, url, nil)
	other := dial(t, url, nil)
	readEvent(t, sender)
	readEvent(t, other)

	require.NoError(t, sender.WriteJSON(map[string]interface{}{
		"type":  "speed-update",
		"state": map[string]interface{}{"speed": 0.4},
	}))

	event := readEvent(t, sender)
	assert.Equal(t, ports.EventTypeError, event.Type)
	var body errorBody
	require.NoError(t, json.Unmarshal(event.Data, &body))
	assert.Equal(t, "validation_error", body.Error)
	assert.Equal(t, "speed", body.Field)

	require.NoError(t, sender.WriteJSON(map[string]interface{}{
		"type":  "mirror-update",
		"state": map[string]interface{}{"isMirrored": "yes"},
	}))
	event = readEvent(t, sender)
	assert.Equal(t, ports.EventTypeError, event.Type)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("not json")))
	event = readEvent(t, sender)
	assert.Equal(t, ports.EventTypeError, event.Type)

	// the next valid update is the first thing the other client sees
	require.NoError(t, sender.WriteJSON(map[string]interface{}{
		"type":  "invert-update",
		"state": map[string]interface{}{"isInverted": true},
	}))
	event = readEvent(t, other)
	assert.Equal(t, ports.EventTypeInvert, event.Type)
	assert.True(t, event.State.IsInverted)
	assert.Equal(t, 2.0, event.State.Speed)

	assert.Eventually(t, func() bool { return h.metrics.Report().FramesAccepted == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(3), h.metrics.Report().FramesRejected)
}

func TestWebSocket_HTTPMutationReachesSockets(t *testing.T) {
	h := newHarness(t, entities.DefaultCanonicalState())
	url := startWS(t, h)

	ws := dial(t, url, nil)
	readEvent(t, ws)

	w := h.do(http.MethodPost, "/api/control/play", nil)
	require.Equal(t, http.StatusOK, w.Code)

	event := readEvent(t, ws)
	assert.Equal(t, ports.EventTypeControl, event.Type)
	assert.True(t, event.State.IsPlaying)
}

func TestWebSocket_DisconnectUnregisters(t *testing.T) {
	h := newHarness(t, entities.DefaultCanonicalState())
	url := startWS(t, h)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readEvent(t, ws)
	require.Eventually(t, func() bool { return h.registry.Count() == 1 }, time.Second, 10*time.Millisecond)

	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = ws.Close()

	assert.Eventually(t, func() bool { return h.registry.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return h.metrics.Report().ActiveConnections == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), h.metrics.Report().TotalConnections)
}

func TestWebSocket_CloseAllEndsSessions(t *testing.T) {
	h := newHarness(t, entities.DefaultCanonicalState())
	url := startWS(t, h)

	ws := dial(t, url, nil)
	readEvent(t, ws)
	require.Eventually(t, func() bool { return h.registry.Count() == 1 }, time.Second, 10*time.Millisecond)

	h.registry.CloseAll()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err)
}

func TestWebSocket_OriginCheck(t *testing.T) {
	t.Run("development accepts LAN origins", func(t *testing.T) {
		h := newHarness(t, entities.DefaultCanonicalState())
		url := startWS(t, h)

		ws := dial(t, url, http.Header{"Origin": []string{"http://192.168.1.20:3000"}})
		assert.Equal(t, ports.EventTypeInit, readEvent(t, ws).Type)

		_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example.com"}})
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("production uses the whitelist", func(t *testing.T) {
		cfg := getTestServerConfig()
		cfg.Environment = "production"
		cfg.CORSOrigins = []string{"https://studio.example.com", "*.example.org"}
		h := newHarnessWithConfig(t, entities.DefaultCanonicalState(), cfg)

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		for origin, want := range map[string]bool{
			"https://studio.example.com": true,
			"https://cam.example.org":    true,
			"http://192.168.1.20:3000":   false,
			"https://example.com.evil":   false,
		} {
			req.Header.Set("Origin", origin)
			assert.Equal(t, want, h.server.isValidOrigin(req), origin)
		}
	})
}

func TestDecodeFrame(t *testing.T) {
	kind, patch, err := decodeFrame([]byte(`{"type":"update","state":{"text":"x","currentSlide":0}}`))
	require.NoError(t, err)
	assert.Equal(t, "update", kind)
	require.NotNil(t, patch.Text)
	assert.Equal(t, "x", *patch.Text)
	require.NotNil(t, patch.CurrentSlide)

	kind, patch, err = decodeFrame([]byte(`{"type":"update"}`))
	require.NoError(t, err)
	assert.Equal(t, "update", kind)
	assert.True(t, patch.IsEmpty())

	_, _, err = decodeFrame([]byte(`{"type":"update","state":{"speed":"fast"}}`))
	assert.True(t, entities.IsValidationError(err))
}
