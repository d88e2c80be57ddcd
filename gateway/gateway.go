// Package gateway exposes the assistant over a websocket speech boundary.
// A speech front-end connects, streams utterance messages in, and receives
// one turn message back per utterance.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hearthware/aura/brain"
	"github.com/hearthware/aura/memory"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultPongTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultTurnTimeout  = 30 * time.Second
	maxUtteranceBytes   = 1 << 16
)

// UtteranceMessage is the inbound wire format.
type UtteranceMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TurnMessage is the outbound wire format for one completed turn.
type TurnMessage struct {
	Type       string            `json:"type"`
	Input      string            `json:"input"`
	Category   string            `json:"category"`
	Confidence float64           `json:"confidence"`
	Args       map[string]string `json:"args,omitempty"`
	State      string            `json:"state"`
	Reply      string            `json:"reply"`
	Error      string            `json:"error,omitempty"`
}

// Config configures the gateway.
type Config struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	PongTimeout    time.Duration

	// TurnTimeout bounds one full ProcessTurn, on top of per-plugin
	// deadlines.
	TurnTimeout time.Duration
}

// Gateway is the websocket handler in front of the brain.
type Gateway struct {
	brain        *brain.Brain
	logger       memory.Logger
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	pongTimeout  time.Duration
	turnTimeout  time.Duration
}

// New creates a gateway over a brain.
func New(b *brain.Brain, cfg Config, logger memory.Logger) *Gateway {
	if logger == nil {
		logger = memory.NopLogger{}
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = defaultTurnTimeout
	}

	allowedOrigins := append([]string(nil), cfg.AllowedOrigins...)
	g := &Gateway{
		brain:        b,
		logger:       logger,
		pingInterval: cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
		turnTimeout:  cfg.TurnTimeout,
	}
	g.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}
	return g
}

// ServeHTTP upgrades the connection and serves the utterance loop.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "websocket upgrade required", http.StatusBadRequest)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	readDeadline := g.pingInterval + g.pongTimeout
	conn.SetReadLimit(maxUtteranceBytes)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	done := make(chan struct{})
	defer close(done)
	go g.keepalive(conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		msg := g.handleUtterance(r.Context(), data)
		_ = conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			g.logger.Warn("websocket write error", "error", err)
			return
		}
	}
}

func (g *Gateway) keepalive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(g.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(defaultWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) handleUtterance(ctx context.Context, raw []byte) TurnMessage {
	var utterance UtteranceMessage
	if err := json.Unmarshal(raw, &utterance); err != nil {
		return TurnMessage{Type: "error", Error: "malformed message"}
	}

	text := strings.TrimSpace(utterance.Text)
	if text == "" {
		return TurnMessage{Type: "error", Error: "empty utterance"}
	}

	ctx, cancel := context.WithTimeout(ctx, g.turnTimeout)
	defer cancel()

	result, err := g.brain.ProcessTurn(ctx, text)
	if err != nil {
		g.logger.Error("turn failed", "error", err)
		return TurnMessage{Type: "error", Input: text, Error: err.Error()}
	}

	msg := TurnMessage{
		Type:       "turn",
		Input:      result.Input,
		Category:   result.Intention.Category,
		Confidence: result.Intention.Confidence,
		Args:       result.Intention.Args,
		State:      result.State.String(),
		Reply:      result.Reply,
	}
	if result.Err != nil {
		msg.Error = result.Err.Error()
	}
	return msg
}

func originAllowed(r *http.Request, allowedOrigins []string) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if len(allowedOrigins) == 0 {
		return true
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSpace(allowed), origin) {
			return true
		}
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(originURL.Host, r.Host)
}
