package interview

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/utils"
)

const (
	OperationTurn     = "interview_turn"
	OperationFeedback = "feedback"

	defaultMaxLogLength = 200
)

//go:embed prompts/interviewer.md
var interviewerTemplate string

// Observer receives the outcome of every language model request.
type Observer interface {
	ObserveModelRequest(operation string, elapsed time.Duration, err error)
}

// TurnResult describes the outcome of SubmitUserTurn.
type TurnResult struct {
	// Reply is the committed assistant reply. It is empty for the last turn.
	Reply        string `json:"reply"`
	ChatComplete bool   `json:"chat_complete"`
	// Rejected is set when the turn cap was already reached and nothing changed.
	Rejected bool `json:"rejected"`
}

type Option func(*Engine)

// WithRequestTimeout bounds every language model request.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithMaxLogLength(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLogLen = n
		}
	}
}

// Engine drives the interview state machine. It holds no session state;
// every command receives the session it operates on.
type Engine struct {
	client    ai.Client
	feedback  *FeedbackGenerator
	logger    *zap.Logger
	observer  Observer
	timeout   time.Duration
	maxLogLen int
}

func NewEngine(client ai.Client, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		client:    client,
		logger:    logger.WithCommonFields(log, client.Provider(), client.Model()),
		maxLogLen: defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.feedback = NewFeedbackGenerator(client, e.logger, e.maxLogLen)
	return e
}

// SystemPrompt renders the interviewer instructions for the profile.
func SystemPrompt(p Profile) string {
	r := strings.NewReplacer(
		"{{NAME}}", p.Name,
		"{{EXPERIENCE}}", p.Experience,
		"{{SKILLS}}", p.Skills,
		"{{LEVEL}}", p.Level,
		"{{POSITION}}", p.Position,
		"{{COMPANY}}", p.Company,
	)
	return r.Replace(strings.TrimSpace(interviewerTemplate))
}

// EnsureSystemPrompt inserts the interviewer instructions when the transcript is empty.
func EnsureSystemPrompt(s *State) {
	if len(s.Transcript) > 0 {
		return
	}
	s.Transcript = append(s.Transcript, Turn{Role: ai.RoleSystem, Content: SystemPrompt(s.Profile)})
}

// SetProfile replaces the candidate profile. The profile is frozen once the
// interview starts.
func (e *Engine) SetProfile(s *State, p Profile) error {
	if phase := s.Phase(); phase != PhaseSetup {
		return invalidTransition("set profile", phase)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.Profile = p
	return nil
}

// CompleteSetup starts the interview.
func (e *Engine) CompleteSetup(s *State) error {
	if phase := s.Phase(); phase != PhaseSetup {
		return invalidTransition("complete setup", phase)
	}
	if err := s.Profile.Validate(); err != nil {
		return err
	}

	s.SetupComplete = true
	EnsureSystemPrompt(s)

	e.sessionLogger(s).Info("interview started",
		zap.String("level", s.Profile.Level),
		zap.String("position", s.Profile.Position),
		zap.String("company", s.Profile.Company),
	)
	return nil
}

// SubmitUserTurn records the candidate reply and, unless it was the last one,
// streams the interviewer answer to onFragment and commits it to the
// transcript. When the model call fails the user turn stays recorded.
func (e *Engine) SubmitUserTurn(ctx context.Context, s *State, text string, onFragment func(string)) (TurnResult, error) {
	log := e.sessionLogger(s)

	if !s.SetupComplete {
		return TurnResult{}, invalidTransition("submit turn", s.Phase())
	}

	if s.UserTurnCount >= MaxUserTurns {
		log.Debug("turn rejected", zap.String("reason", "turn limit reached"), zap.Int("user_turns", s.UserTurnCount))
		return TurnResult{ChatComplete: s.ChatComplete, Rejected: true}, nil
	}

	if strings.TrimSpace(text) == "" {
		return TurnResult{}, &ValidationError{Field: "reply"}
	}
	if err := checkLength("reply", text, MaxReplyLength); err != nil {
		return TurnResult{}, err
	}

	EnsureSystemPrompt(s)

	s.Transcript = append(s.Transcript, Turn{Role: ai.RoleUser, Content: text})
	s.UserTurnCount++

	if s.UserTurnCount >= MaxUserTurns {
		s.ChatComplete = true
		log.Info("interview complete", zap.Int("user_turns", s.UserTurnCount))
		return TurnResult{ChatComplete: true}, nil
	}

	messages := make([]ai.Message, len(s.Transcript))
	copy(messages, s.Transcript)

	log.Debug("interview turn request",
		zap.Int("user_turn", s.UserTurnCount),
		zap.Int("messages", len(messages)),
		zap.Int("prompt_tokens", utils.CountMessageTokens(contents(messages)...)),
		zap.String("reply_preview", logger.TruncateForLog(text, e.maxLogLen)),
	)

	reply, err := e.streamReply(ctx, messages, onFragment)
	if err != nil {
		log.Warn("interview turn failed",
			zap.Int("user_turn", s.UserTurnCount),
			zap.String("kind", string(ai.KindOf(err))),
			zap.Error(err),
		)
		return TurnResult{}, fmt.Errorf("interview turn %d: %w", s.UserTurnCount, err)
	}

	s.Transcript = append(s.Transcript, Turn{Role: ai.RoleAssistant, Content: reply})

	log.Debug("interview turn response",
		zap.Int("user_turn", s.UserTurnCount),
		zap.Int("response_length", utf8.RuneCountInString(reply)),
		zap.String("response_preview", logger.TruncateForLog(reply, e.maxLogLen)),
	)

	return TurnResult{Reply: reply}, nil
}

// RequestFeedback moves a finished interview to the feedback phase. Once the
// feedback exists it is returned without calling the model again.
func (e *Engine) RequestFeedback(ctx context.Context, s *State) (string, error) {
	phase := s.Phase()
	if phase == PhaseFeedbackShown && s.Feedback != "" {
		return s.Feedback, nil
	}
	if phase != PhaseChatComplete {
		return "", invalidTransition("request feedback", phase)
	}

	prompt := BuildFeedbackPrompt(s)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	text, err := e.feedback.GenerateFeedback(ctx, prompt)
	err = e.asModelError(err)
	e.observe(OperationFeedback, time.Since(start), err)
	if err != nil {
		e.sessionLogger(s).Warn("feedback failed", zap.String("kind", string(ai.KindOf(err))), zap.Error(err))
		return "", fmt.Errorf("generate feedback: %w", err)
	}

	s.Feedback = text
	s.FeedbackShown = true

	e.sessionLogger(s).Info("feedback generated", zap.Int("response_length", utf8.RuneCountInString(text)))
	return text, nil
}

// Restart discards the finished session.
func (e *Engine) Restart(s *State) error {
	if phase := s.Phase(); phase != PhaseFeedbackShown {
		return invalidTransition("restart", phase)
	}

	previous := s.ID
	s.Reset()

	e.logger.Info("interview restarted", zap.String("previous_session_id", previous), zap.String(logger.FieldSession, s.ID))
	return nil
}

func (e *Engine) streamReply(ctx context.Context, messages []ai.Message, onFragment func(string)) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	reply, err := e.collect(ctx, messages, onFragment)
	err = e.asModelError(err)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ai.NewRequestError(e.client.Provider(), ai.KindEmptyResponse, errors.New("model returned an empty reply"))
	}
	e.observe(OperationTurn, time.Since(start), err)

	return reply, err
}

func (e *Engine) collect(ctx context.Context, messages []ai.Message, onFragment func(string)) (string, error) {
	stream, err := e.client.Stream(ctx, ai.Request{Messages: messages})
	if err != nil {
		return "", err
	}
	return stream.Collect(onFragment)
}

// asModelError makes sure every failure of the model call matches ai.ErrModelRequestFailed.
func (e *Engine) asModelError(err error) error {
	if err == nil || errors.Is(err, ai.ErrModelRequestFailed) {
		return err
	}
	return ai.NewRequestError(e.client.Provider(), ai.KindUnknown, err)
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) observe(operation string, elapsed time.Duration, err error) {
	if e.observer != nil {
		e.observer.ObserveModelRequest(operation, elapsed, err)
	}
}

func (e *Engine) sessionLogger(s *State) *zap.Logger {
	return logger.WithFields(e.logger, logger.SessionFields(s.ID, string(s.Phase()))...)
}
