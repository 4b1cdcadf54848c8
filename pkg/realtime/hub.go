package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/session"
)

// ConnectionSuccess is the state a client reports once its socket is open.
const ConnectionSuccess = "success"

const writeWait = 5 * time.Second

// Hub is the server end of the instruction channel. Clients announce
// themselves with a connection event and then only listen; the hub pushes
// session instructions to every one of them. Once the last client has been
// gone for the idle timeout the hub calls onIdle, so the backend can drop a
// conversation nobody is attached to.
type Hub struct {
	logger zerolog.Logger

	mu          sync.Mutex
	clients     map[*websocket.Conn]*client
	idle        *time.Timer
	idleTimeout time.Duration
	onIdle      func()
	closed      bool
}

type client struct {
	joined    time.Time
	announced bool
}

type HubOption func(*Hub)

// WithIdleTimeout calls onIdle after no client has been connected for d.
func WithIdleTimeout(d time.Duration, onIdle func()) HubOption {
	return func(h *Hub) {
		h.idleTimeout = d
		h.onIdle = onIdle
	}
}

func WithHubLogger(logger zerolog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = logger
	}
}

func NewHub(options ...HubOption) *Hub {
	h := &Hub{
		logger:  log.With().Str("component", "realtime").Logger(),
		clients: map[*websocket.Conn]*client{},
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// Serve registers conn and reads its frames until the client goes away or the
// hub is closed. It blocks, so call it from the upgrading handler.
func (h *Hub) Serve(conn *websocket.Conn) {
	if conn == nil {
		return
	}
	if !h.join(conn) {
		_ = conn.Close()
		return
	}
	defer h.leave(conn)

	// drop the deadline the http server left on the hijacked connection
	_ = conn.SetReadDeadline(time.Time{})
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Msg("socket read failed")
			}
			return
		}
		h.handleFrame(conn, frame)
	}
}

func (h *Hub) handleFrame(conn *websocket.Conn, frame []byte) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		h.logger.Debug().Err(err).Msg("ignoring socket frame")
		return
	}
	if env.Event != EventConnection {
		h.logger.Debug().Str("event", env.Event).Msg("ignoring client event")
		return
	}
	var data ConnectionData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.State != ConnectionSuccess {
		h.logger.Debug().Str("state", data.State).Msg("client reported no connection")
		return
	}

	h.mu.Lock()
	c, ok := h.clients[conn]
	if ok {
		c.announced = true
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Info().Int("clients", n).Msg("client connected successfully")
	}
}

// Broadcast sends in to every client and reports how many received it. A
// client whose write fails is dropped.
func (h *Hub) Broadcast(in session.Instruction) (int, error) {
	frame, err := EncodeInstruction(in)
	if err != nil {
		return 0, err
	}
	return h.broadcastFrame(frame), nil
}

func (h *Hub) broadcastFrame(frame []byte) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sent, dropped := 0, 0
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.logger.Warn().Err(err).Msg("instruction not delivered, dropping client")
			delete(h.clients, conn)
			_ = conn.Close()
			dropped++
			continue
		}
		sent++
	}
	if dropped > 0 && len(h.clients) == 0 && !h.closed {
		h.armIdleLocked()
	}
	return sent
}

// Count returns the number of open sockets.
func (h *Hub) Count() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Announced returns how many open sockets reported a successful connection.
func (h *Hub) Announced() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.clients {
		if c.announced {
			n++
		}
	}
	return n
}

// Close says goodbye to every client and refuses new ones.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	bye := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage, bye, time.Now().Add(writeWait))
		_ = conn.Close()
		delete(h.clients, conn)
	}
	h.disarmIdleLocked()
}

func (h *Hub) join(conn *websocket.Conn) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[conn] = &client{joined: time.Now()}
	h.disarmIdleLocked()
	return true
}

func (h *Hub) leave(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	delete(h.clients, conn)
	if len(h.clients) == 0 && !h.closed {
		h.armIdleLocked()
	}
	h.mu.Unlock()
	_ = conn.Close()
	if ok {
		h.logger.Info().Dur("connected_for", time.Since(c.joined)).Msg("client disconnected")
	}
}

func (h *Hub) armIdleLocked() {
	h.disarmIdleLocked()
	if h.idleTimeout <= 0 || h.onIdle == nil {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(h.idleTimeout, func() {
		h.mu.Lock()
		fire := h.idle == t && len(h.clients) == 0
		if h.idle == t {
			h.idle = nil
		}
		h.mu.Unlock()
		if fire {
			h.onIdle()
		}
	})
	h.idle = t
}

func (h *Hub) disarmIdleLocked() {
	if h.idle != nil {
		h.idle.Stop()
		h.idle = nil
	}
}
