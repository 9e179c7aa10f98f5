// Package httpapi exposes a single interview session over HTTP and WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/observability"
	"github.com/spigell/hh-interviewer/internal/report"
)

const (
	eventFragment = "fragment"
	eventTurn     = "turn"
	eventError    = "error"

	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 10 * time.Minute
)

// Server hosts exactly one interview session. Commands are serialized by mu.
type Server struct {
	engine   *interview.Engine
	metrics  *observability.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	state *interview.State
}

func New(engine *interview.Engine, state *interview.State, metrics *observability.Metrics, log *zap.Logger) *Server {
	if state == nil {
		state = interview.NewState()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		engine:  engine,
		state:   state,
		metrics: metrics,
		logger:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOrigin,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Route("/v1/interview", func(r chi.Router) {
		r.Get("/", s.handleSnapshot)
		r.Put("/profile", s.handleSetProfile)
		r.Post("/start", s.handleStart)
		r.Post("/turns", s.handleTurn)
		r.Get("/ws", s.handleTurnWS)
		r.Post("/feedback", s.handleFeedback)
		r.Post("/restart", s.handleRestart)
	})

	return r
}

type snapshot struct {
	ID            string            `json:"id"`
	Phase         interview.Phase   `json:"phase"`
	SetupComplete bool              `json:"setup_complete"`
	ChatComplete  bool              `json:"chat_complete"`
	FeedbackShown bool              `json:"feedback_shown"`
	UserTurnCount int               `json:"user_turn_count"`
	MaxUserTurns  int               `json:"max_user_turns"`
	Profile       interview.Profile `json:"profile"`
	Transcript    []interview.Turn  `json:"transcript"`
	Feedback      string            `json:"feedback,omitempty"`
}

type turnRequest struct {
	Text string `json:"text"`
}

type feedbackResponse struct {
	Feedback string   `json:"feedback"`
	Score    *float64 `json:"score,omitempty"`
}

type wsEvent struct {
	Type  string                `json:"type"`
	Text  string                `json:"text,omitempty"`
	Turn  *interview.TurnResult `json:"turn,omitempty"`
	Code  string                `json:"code,omitempty"`
	Error string                `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	profile, err := interview.DecodeProfile(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.SetProfile(s.state, profile); err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.CompleteSetup(s.state); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.metrics.ObserveTransition(string(interview.PhaseInterviewing))

	respondJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.submit(r.Context(), req.Text, nil)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shown := s.state.FeedbackShown
	text, err := s.engine.RequestFeedback(r.Context(), s.state)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	if !shown {
		s.metrics.ObserveTransition(string(interview.PhaseFeedbackShown))
	}

	resp := feedbackResponse{Feedback: text}
	if score, ok := report.ParseScore(text); ok {
		resp.Score = &score
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRestart(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Restart(s.state); err != nil {
		s.respondEngineError(w, err)
		return
	}
	s.metrics.ObserveTransition(string(interview.PhaseSetup))

	respondJSON(w, http.StatusOK, s.snapshot())
}

// handleTurnWS accepts {"text": ...} messages and answers each with fragment
// events followed by a turn event, or a single error event.
func (s *Server) handleTurnWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	log := s.logger.With(zap.String("remote", r.RemoteAddr))
	log.Debug("websocket connected")

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

	send := func(ev wsEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			return err
		}
		s.metrics.ObserveWSMessage("outbound", ev.Type)
		return nil
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("websocket closed", zap.Error(err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		s.metrics.ObserveWSMessage("inbound", eventTurn)

		var req turnRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if send(wsEvent{Type: eventError, Code: "invalid_request", Error: err.Error()}) != nil {
				return
			}
			continue
		}

		if err := s.wsTurn(r.Context(), req.Text, send); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (s *Server) wsTurn(ctx context.Context, text string, send func(wsEvent) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var writeErr error
	res, err := s.submit(ctx, text, func(fragment string) {
		if writeErr == nil {
			writeErr = send(wsEvent{Type: eventFragment, Text: fragment})
		}
	})
	if writeErr != nil {
		return writeErr
	}

	if err != nil {
		_, code, _ := classify(err)
		return send(wsEvent{Type: eventError, Code: code, Error: err.Error()})
	}
	return send(wsEvent{Type: eventTurn, Turn: &res})
}

// submit runs one turn against the hosted session. Callers hold mu.
func (s *Server) submit(ctx context.Context, text string, onFragment func(string)) (interview.TurnResult, error) {
	res, err := s.engine.SubmitUserTurn(ctx, s.state, text, onFragment)

	switch {
	case err != nil && errors.Is(err, ai.ErrModelRequestFailed):
		s.metrics.ObserveTurn("failed")
	case err != nil:
		s.metrics.ObserveTurn("invalid")
	case res.Rejected:
		s.metrics.ObserveTurn("rejected")
	default:
		s.metrics.ObserveTurn("accepted")
		if res.ChatComplete {
			s.metrics.ObserveTransition(string(interview.PhaseChatComplete))
		}
	}

	return res, err
}

func (s *Server) snapshot() snapshot {
	return snapshot{
		ID:            s.state.ID,
		Phase:         s.state.Phase(),
		SetupComplete: s.state.SetupComplete,
		ChatComplete:  s.state.ChatComplete,
		FeedbackShown: s.state.FeedbackShown,
		UserTurnCount: s.state.UserTurnCount,
		MaxUserTurns:  interview.MaxUserTurns,
		Profile:       s.state.Profile,
		Transcript:    s.state.VisibleTurns(),
		Feedback:      s.state.Feedback,
	}
}

func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	status, code, kind := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.String("code", code), zap.String("kind", kind), zap.Error(err))
	}
	respondError(w, status, code, err.Error())
}

func classify(err error) (status int, code string, kind string) {
	var verr *interview.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid_input", ""
	case errors.Is(err, interview.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", ""
	case errors.Is(err, ai.ErrModelRequestFailed):
		return http.StatusBadGateway, "model_error", string(ai.KindOf(err))
	default:
		return http.StatusInternalServerError, "internal", ""
	}
}

func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
