package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/partygpt/pkg/backend"
	"github.com/go-go-golems/partygpt/pkg/chat"
	"github.com/go-go-golems/partygpt/pkg/realtime"
	"github.com/go-go-golems/partygpt/pkg/records"
	"github.com/go-go-golems/partygpt/pkg/redisstream"
	"github.com/go-go-golems/partygpt/pkg/session"
)

// Server is a reference implementation of the chat backend: the four HTTP
// endpoints, the socket channel and an echo responder.
type Server struct {
	settings  Settings
	responder Responder
	store     records.Store
	pubsub    *redisstream.PubSub
	bus       *instructionBus
	hub       *realtime.Hub
	conv      *conversation

	mux      *http.ServeMux
	server   *http.Server
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

type ServerOption func(*Server) error

func WithResponder(r Responder) ServerOption {
	return func(s *Server) error {
		if r == nil {
			return errors.New("responder is nil")
		}
		s.responder = r
		return nil
	}
}

// WithStore saves conversations into store instead of the database named in the settings.
func WithStore(st records.Store) ServerOption {
	return func(s *Server) error {
		s.store = st
		return nil
	}
}

func NewServer(settings Settings, redis redisstream.Settings, options ...ServerOption) (*Server, error) {
	s := &Server{
		settings:  settings,
		responder: EchoResponder{},
		conv:      newConversation(),
		mux:       http.NewServeMux(),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		logger:    log.With().Str("component", "devserver").Logger(),
	}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, errors.Wrap(err, "failed to apply server option")
		}
	}

	if s.store == nil && settings.RecordsDB != "" {
		dsn, err := records.DSNForFile(settings.RecordsDB)
		if err != nil {
			return nil, err
		}
		st, err := records.NewSQLiteStore(dsn)
		if err != nil {
			return nil, errors.Wrap(err, "open records database")
		}
		s.store = st
		s.logger.Info().Str("path", settings.RecordsDB).Msg("conversations will be recorded to sqlite")
	}
	if settings.RecordsFolder != "" {
		s.logger.Info().Str("folder", settings.RecordsFolder).Msg("conversations will be exported as yaml")
	}

	if redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisstream.EnsureGroupAtTail(ctx, redis.Addr, InstructionTopic, redis.Group)
		cancel()
		if err != nil {
			return nil, errors.Wrap(err, "prepare redis consumer group")
		}
	}
	ps, err := redisstream.BuildPubSub(redis)
	if err != nil {
		return nil, errors.Wrap(err, "build instruction bus")
	}
	s.pubsub = ps
	s.bus = newInstructionBus(ps.Publisher, ps.Subscriber, s.logger)
	s.hub = realtime.NewHub(
		realtime.WithHubLogger(s.logger.With().Str("channel", "socket").Logger()),
		realtime.WithIdleTimeout(settings.SocketIdleTimeout(), s.onSocketsIdle),
	)

	s.registerHTTPHandlers()
	s.server = &http.Server{
		Addr:              settings.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves HTTP and relays instructions until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error { return s.RelayInstructions(egCtx) })

	eg.Go(func() error {
		<-egCtx.Done()
		s.logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.Close()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown error")
			return err
		}
		return nil
	})

	eg.Go(func() error {
		s.logger.Info().Str("addr", s.settings.Addr).Msg("starting reference backend")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	return eg.Wait()
}

// RelayInstructions broadcasts every instruction from the bus to all sockets.
func (s *Server) RelayInstructions(ctx context.Context) error {
	return s.bus.Run(ctx, func(in session.Instruction) {
		n, err := s.hub.Broadcast(in)
		if err != nil {
			s.logger.Error().Err(err).Msg("cannot encode instruction")
			return
		}
		s.logger.Info().Str("type", in.Type).Int("clients", n).Msg("instruction sent")
	})
}

// RelayReady is closed once RelayInstructions is subscribed to the bus.
func (s *Server) RelayReady() <-chan struct{} {
	return s.bus.ready
}

func (s *Server) Close() error {
	s.hub.Close()
	var first error
	if err := s.pubsub.Close(); err != nil {
		first = err
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Server) registerHTTPHandlers() {
	s.mux.HandleFunc("/process-input", s.handleProcessInput)
	s.mux.HandleFunc("/save-records", s.handleSaveRecords)
	s.mux.HandleFunc("/set-records", s.handleSetRecords)
	s.mux.HandleFunc("/close-session", s.handleCloseSession)
	s.mux.HandleFunc("/ws", s.handleSocket)
}

func (s *Server) handleProcessInput(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req backend.ProcessInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, backend.ProcessInputResponse{})
		return
	}
	s.logger.Info().Str("message", escapeNewlines(req.Message)).Msg("user message")

	history := s.conv.append(chat.NewMessage(chat.SenderUser, req.Message))
	reply, farewell := s.responder.Respond(history, req.Message)
	if farewell {
		s.endConversation()
		writeJSON(w, backend.ProcessInputResponse{})
		return
	}
	if reply == "" {
		writeJSON(w, backend.ProcessInputResponse{})
		return
	}
	s.conv.append(chat.NewMessage(chat.SenderAssistant, reply))
	s.logger.Info().Str("reply", escapeNewlines(reply)).Int("history", len(history)+1).Msg("assistant reply")
	writeJSON(w, backend.ProcessInputResponse{Reply: &reply})
}

// endConversation asks every client to show the farewell and start over.
func (s *Server) endConversation() {
	goodbye := s.settings.GoodbyeMessage
	if goodbye == "" {
		goodbye = DefaultGoodbyeMessage
	}
	s.conv.append(chat.NewMessage(chat.SenderAssistant, goodbye))
	in := session.Instruction{
		Type:       session.InstructionRefreshSessionTimer,
		GoodbyeMsg: goodbye,
		Timer:      float64(s.settings.GoodbyeTimerSeconds),
	}
	if err := s.bus.Publish(in); err != nil {
		s.logger.Error().Err(err).Msg("cannot announce end of session")
		return
	}
	s.logger.Info().Msg("session refreshed (per backend)")
}

func (s *Server) handleSaveRecords(w http.ResponseWriter, r *http.Request) {
	sessionID, history, recording := s.conv.snapshot()
	if !recording || len(history) == 0 {
		s.logger.Debug().Bool("recording", recording).Int("history", len(history)).Msg("nothing to save")
		w.WriteHeader(http.StatusOK)
		return
	}
	rec := records.Record{SessionID: sessionID, SavedAt: time.Now(), Messages: history}

	if s.store != nil {
		id, err := s.store.Save(r.Context(), rec)
		if err != nil {
			s.logger.Error().Err(err).Msg("save records failed")
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
		s.logger.Info().Int64("record_id", id).Str("session_id", sessionID).Msg("conversation saved")
	}
	if s.settings.RecordsFolder != "" {
		path, err := records.WriteYAML(s.settings.RecordsFolder, rec)
		if err != nil {
			s.logger.Error().Err(err).Msg("export records failed")
			http.Error(w, "export failed", http.StatusInternalServerError)
			return
		}
		s.logger.Info().Str("path", path).Msg("conversation exported")
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSetRecords(w http.ResponseWriter, r *http.Request) {
	flag, err := strconv.ParseBool(r.URL.Query().Get("flag"))
	if err != nil {
		http.Error(w, "flag must be true or false", http.StatusBadRequest)
		return
	}
	s.conv.setRecording(flag)
	msg := "This conversation will not be recorded."
	if flag {
		msg = "This conversation will be recorded."
	}
	s.logger.Info().Bool("recording", flag).Msg("recording flag set")
	writeJSON(w, backend.SetRecordsResponse{Message: msg})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	previous := s.conv.reset()
	s.logger.Info().Str("session_id", previous).Msg("session refreshed (per frontend)")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.hub.Serve(conn)
}

func (s *Server) onSocketsIdle() {
	previous := s.conv.reset()
	s.logger.Info().Str("session_id", previous).Msg("no client connected, conversation reset")
}

// SessionID returns the id of the conversation currently being served.
func (s *Server) SessionID() string {
	id, _, _ := s.conv.snapshot()
	return id
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("component", "devserver").Msg("write response failed")
	}
}

func escapeNewlines(s string) string {
	return strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(s)
}
