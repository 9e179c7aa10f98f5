package interview

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/logger"
	"github.com/spigell/hh-interviewer/internal/utils"
)

//go:embed prompts/feedback_system.md
var feedbackSystemTemplate string

//go:embed prompts/feedback_user.md
var feedbackUserTemplate string

// FeedbackGenerator asks the model for a scored critique of a finished interview.
type FeedbackGenerator struct {
	client    ai.Client
	logger    *zap.Logger
	maxLogLen int
}

func NewFeedbackGenerator(client ai.Client, log *zap.Logger, maxLogLen int) *FeedbackGenerator {
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}
	return &FeedbackGenerator{
		client:    client,
		logger:    logger.WithFields(log),
		maxLogLen: maxLogLen,
	}
}

// RenderHistory renders every turn, system turn included, as "role : content"
// lines joined by newlines.
func RenderHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, string(t.Role)+" : "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// BuildFeedbackPrompt returns exactly two turns: the evaluator instructions
// and the rendered interview.
func BuildFeedbackPrompt(s *State) []Turn {
	history := RenderHistory(s.Transcript)
	user := strings.ReplaceAll(strings.TrimSpace(feedbackUserTemplate), "{{CONVERSATION_HISTORY}}", history)

	return []Turn{
		{Role: ai.RoleSystem, Content: strings.TrimSpace(feedbackSystemTemplate)},
		{Role: ai.RoleUser, Content: user},
	}
}

// GenerateFeedback sends the prompt without streaming and returns the response verbatim.
func (g *FeedbackGenerator) GenerateFeedback(ctx context.Context, prompt []Turn) (string, error) {
	if len(prompt) == 0 {
		return "", errors.New("feedback prompt must not be empty")
	}

	g.logger.Debug("feedback request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt[len(prompt)-1].Content)),
		zap.Int("prompt_tokens", utils.CountMessageTokens(contents(prompt)...)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt[len(prompt)-1].Content, g.maxLogLen)),
	)

	text, err := g.client.Complete(ctx, ai.Request{Messages: prompt})
	if err != nil {
		return "", err
	}

	g.logger.Debug("feedback response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", logger.TruncateForLog(text, g.maxLogLen)),
	)

	return text, nil
}

func contents(turns []Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Content)
	}
	return out
}
