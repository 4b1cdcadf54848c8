package realtime

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/partygpt/pkg/session"
)

// InstructionHandler receives every instruction pushed by the server.
type InstructionHandler func(session.Instruction)

// Client is the receiving end of the socket channel.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger zerolog.Logger
}

// SocketURL derives the socket address from the backend base URL.
func SocketURL(base *url.URL) string {
	u := *base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.JoinPath("/ws").String()
}

func NewClient(socketURL string) *Client {
	return &Client{
		url:    socketURL,
		dialer: websocket.DefaultDialer,
		logger: log.With().Str("component", "realtime").Str("url", socketURL).Logger(),
	}
}

// Run dials the server, announces the connection and dispatches instructions
// until ctx is cancelled or the server goes away. There is no reconnect.
func (c *Client) Run(ctx context.Context, handler InstructionHandler) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrap(err, "dial socket")
	}
	defer func() { _ = conn.Close() }()

	hello, err := NewEnvelope(EventConnection, ConnectionData{State: ConnectionSuccess})
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(hello); err != nil {
		return errors.Wrap(err, "send connection event")
	}
	c.logger.Info().Msg("socket connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info().Msg("socket closed by server")
				return nil
			}
			return errors.Wrap(err, "read socket")
		}
		c.dispatch(frame, handler)
	}
}

func (c *Client) dispatch(frame []byte, handler InstructionHandler) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		c.logger.Warn().Err(err).Msg("dropping malformed frame")
		return
	}
	if env.Event != EventInstruction {
		c.logger.Debug().Str("event", env.Event).RawJSON("data", orNull(env.Data)).Msg("ignoring socket event")
		return
	}
	in, err := env.Instruction()
	if err != nil {
		c.logger.Error().Err(err).Msg("invalid instruction payload")
		return
	}
	c.logger.Debug().Str("type", in.Type).Msg("instruction received")
	if handler != nil {
		handler(in)
	}
}

func orNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
