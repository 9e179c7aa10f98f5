// Package mock provides an offline language model that produces canned
// interviewer questions and a fixed-format feedback.
package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/hh-interviewer/internal/ai"
)

const (
	provider     = "mock"
	defaultModel = "mock-interviewer"
)

var questions = []string{
	"Thanks for the introduction. Could you walk me through a recent project you are proud of?",
	"What was the hardest technical problem in that project and how did you solve it?",
	"How do you usually work with stakeholders who are not technical?",
	"Where do you see yourself growing in this role over the next two years?",
}

type Client struct {
	model string
}

func New(model string) *Client {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{model: model}
}

func (c *Client) Provider() string { return provider }

func (c *Client) Model() string { return c.model }

// Complete answers feedback requests with a fixed score and anything else with
// the next interview question.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ai.NewRequestError(provider, ai.KindTimeout, err)
	}
	if len(req.Messages) == 0 {
		return "", ai.NewRequestError(provider, ai.KindBadRequest, fmt.Errorf("no messages"))
	}
	return c.reply(req), nil
}

// Stream yields the reply word by word.
func (c *Client) Stream(ctx context.Context, req ai.Request) (*ai.Stream, error) {
	text, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	words := strings.SplitAfter(text, " ")
	return ai.NewStream(func(yield func(string, error) bool) {
		for _, w := range words {
			if err := ctx.Err(); err != nil {
				yield("", ai.NewRequestError(provider, ai.KindTimeout, err))
				return
			}
			if !yield(w, nil) {
				return
			}
		}
	}), nil
}

func (c *Client) reply(req ai.Request) string {
	if isFeedbackRequest(req.Messages) {
		return "Overall Score: 7\nFeedback: Clear and structured answers. Add more measurable results when describing your projects."
	}

	answered := 0
	for _, m := range req.Messages {
		if m.Role == ai.RoleAssistant {
			answered++
		}
	}

	return questions[answered%len(questions)]
}

func isFeedbackRequest(messages []ai.Message) bool {
	for _, m := range messages {
		if m.Role == ai.RoleSystem && strings.Contains(m.Content, "Overall Score") {
			return true
		}
	}
	return false
}
