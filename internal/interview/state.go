package interview

import (
	"github.com/google/uuid"

	"github.com/spigell/hh-interviewer/internal/ai"
)

// MaxUserTurns is the number of candidate replies after which the interview ends.
const MaxUserTurns = 5

// Turn is one message of the interview transcript.
type Turn = ai.Message

type Phase string

const (
	PhaseSetup         Phase = "setup"
	PhaseInterviewing  Phase = "interviewing"
	PhaseChatComplete  Phase = "chat_complete"
	PhaseFeedbackShown Phase = "feedback_shown"
)

// State is the mutable state of one interview session. It is not safe for
// concurrent use; callers serialize commands on a session.
type State struct {
	ID            string
	Profile       Profile
	Transcript    []Turn
	UserTurnCount int
	SetupComplete bool
	ChatComplete  bool
	FeedbackShown bool
	Feedback      string
}

func NewState() *State {
	s := &State{}
	s.Initialize()
	return s
}

// Initialize fills in only the values that are missing, so it can be called
// on every render without losing progress.
func (s *State) Initialize() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	defaults := DefaultProfile()
	if s.Profile.Level == "" {
		s.Profile.Level = defaults.Level
	}
	if s.Profile.Position == "" {
		s.Profile.Position = defaults.Position
	}
	if s.Profile.Company == "" {
		s.Profile.Company = defaults.Company
	}
}

// Reset discards the whole session and starts a new one.
func (s *State) Reset() {
	*s = State{}
	s.Initialize()
}

func (s *State) Phase() Phase {
	switch {
	case s.FeedbackShown:
		return PhaseFeedbackShown
	case s.ChatComplete:
		return PhaseChatComplete
	case s.SetupComplete:
		return PhaseInterviewing
	default:
		return PhaseSetup
	}
}

// VisibleTurns returns the transcript without system turns.
func (s *State) VisibleTurns() []Turn {
	visible := make([]Turn, 0, len(s.Transcript))
	for _, t := range s.Transcript {
		if t.Role == ai.RoleSystem {
			continue
		}
		visible = append(visible, t)
	}
	return visible
}
