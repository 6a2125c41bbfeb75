package http

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer; frames carry the whole text
	maxMessageSize = 1 << 20
)

func (s *Server) createUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.isValidOrigin,
	}
}

// clientFrame is what clients send: a kind and a partial state
type clientFrame struct {
	Type  string          `json:"type"`
	State json.RawMessage `json:"state"`
}

// wsClient couples a websocket with its registry connection
type wsClient struct {
	*Connection
	conn    *websocket.Conn
	state   ports.StateSync
	metrics ports.MetricsRecorder
	logger  zerolog.Logger
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.createUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	client := &wsClient{
		Connection: NewConnection(id, s.config.GetSendBuffer()),
		conn:       conn,
		state:      s.prompter,
		metrics:    s.metrics,
		logger:     s.logger.With().Str("channel", id).Logger(),
	}

	if err := s.prompter.Attach(client.Connection); err != nil {
		client.logger.Error().Err(err).Msg("attach failed")
		_ = conn.Close()
		return
	}
	s.metrics.RecordConnection(true)
	client.logger.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.state.Detach(c.ID())
		c.metrics.RecordConnection(false)
		_ = c.conn.Close()
		c.logger.Info().Msg("client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		c.handleFrame(message)
	}
}

func (c *wsClient) handleFrame(message []byte) {
	kind, patch, err := decodeFrame(message)
	if err == nil {
		_, err = c.state.Ingest(kind, patch)
	}
	c.metrics.RecordFrame(err == nil)
	if err == nil {
		return
	}

	c.logger.Debug().Err(err).Str("kind", kind).Msg("frame rejected")
	payload, encErr := json.Marshal(ports.UpdateEvent{Type: ports.EventTypeError, Data: newErrorBody(err)})
	if encErr != nil {
		return
	}
	c.Enqueue(payload)
}

// decodeFrame parses a client frame. Type mismatches in the partial state
// are reported as validation errors.
func decodeFrame(message []byte) (string, entities.StatePatch, error) {
	var frame clientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return "", entities.StatePatch{}, decodeError(err)
	}

	var patch entities.StatePatch
	if len(frame.State) > 0 && string(frame.State) != "null" {
		if err := json.Unmarshal(frame.State, &patch); err != nil {
			return frame.Type, entities.StatePatch{}, decodeError(err)
		}
	}
	return frame.Type, patch, nil
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Outbound():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// isValidOrigin validates websocket origins. Development accepts loopback
// and private LAN hosts so phones and tablets on the studio network can
// connect; production uses the CORS whitelist.
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		s.logger.Warn().Str("origin", origin).Err(err).Msg("websocket rejected: invalid origin")
		return false
	}

	if s.config.IsDevelopment() {
		return isDevelopmentOrigin(originURL)
	}
	return s.isProductionOrigin(originURL)
}

func isDevelopmentOrigin(originURL *url.URL) bool {
	hostname := originURL.Hostname()
	if hostname == "localhost" || hostname == "0.0.0.0" {
		return true
	}

	ip := net.ParseIP(hostname)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

func (s *Server) isProductionOrigin(originURL *url.URL) bool {
	for _, allowed := range s.config.GetCORSOrigins() {
		if allowed == "*" || originURL.String() == allowed {
			return true
		}

		// *.example.com
		if strings.HasPrefix(allowed, "*.") {
			if strings.HasSuffix(originURL.Hostname(), strings.TrimPrefix(allowed, "*")) {
				return true
			}
		}
	}

	s.logger.Warn().
		Str("origin", originURL.String()).
		Strs("allowed_origins", s.config.GetCORSOrigins()).
		Msg("websocket rejected: origin not in whitelist")
	return false
}
