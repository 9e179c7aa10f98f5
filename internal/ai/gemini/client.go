package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/hh-interviewer/internal/ai"
)

const (
	provider     = "gemini"
	defaultModel = "gemini-2.5-flash"

	roleUser  = "user"
	roleModel = "model"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Client wraps the Google GenAI models API as an ai.Client.
type Client struct {
	models modelsAPI
	model  string
}

// New creates a Client configured for the Gemini API backend.
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{models: client.Models, model: model}, nil
}

func (c *Client) Provider() string { return provider }

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete sends the conversation to Gemini and returns the textual response.
func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	if c == nil || c.models == nil {
		return "", errors.New("gemini client is not initialized")
	}

	contents, config, err := convertMessages(req.Messages)
	if err != nil {
		return "", ai.NewRequestError(provider, ai.KindBadRequest, err)
	}

	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", ai.NewRequestError(provider, classify(err), fmt.Errorf("generate content: %w", err))
	}

	output := strings.TrimSpace(responseText(resp, "\n"))
	if output == "" {
		return "", ai.NewRequestError(provider, ai.KindEmptyResponse, errors.New("gemini api returned empty response"))
	}

	return output, nil
}

// Stream sends the conversation to Gemini and yields response chunks as they arrive.
func (c *Client) Stream(ctx context.Context, req ai.Request) (*ai.Stream, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	contents, config, err := convertMessages(req.Messages)
	if err != nil {
		return nil, ai.NewRequestError(provider, ai.KindBadRequest, err)
	}

	chunks := c.models.GenerateContentStream(ctx, c.model, contents, config)

	return ai.NewStream(func(yield func(string, error) bool) {
		for resp, err := range chunks {
			if err != nil {
				yield("", ai.NewRequestError(provider, classify(err), fmt.Errorf("generate content stream: %w", err)))
				return
			}
			if !yield(responseText(resp, ""), nil) {
				return
			}
		}
	}), nil
}

// convertMessages folds system messages into the system instruction and maps
// assistant messages to the model role.
func convertMessages(messages []ai.Message) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	if len(messages) == 0 {
		return nil, nil, errors.New("message list must not be empty")
	}

	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		var role string
		switch msg.Role {
		case ai.RoleSystem:
			system = append(system, msg.Content)
			continue
		case ai.RoleUser:
			role = roleUser
		case ai.RoleAssistant:
			role = roleModel
		default:
			return nil, nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}

		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}

	if len(contents) == 0 {
		return nil, nil, errors.New("at least one user message is required")
	}

	var config *genai.GenerateContentConfig
	if len(system) > 0 {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
			},
		}
	}

	return contents, config, nil
}

func responseText(resp *genai.GenerateContentResponse, sep string) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString(sep)
			}
			builder.WriteString(part.Text)
		}
		// Only the first candidate is part of the conversation.
		break
	}

	return builder.String()
}

func classify(err error) ai.ErrorKind {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return ai.ClassifyStatus(apiErr.Code)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return ai.ClassifyStatus(apiErrPtr.Code)
	}

	return ai.KindTransport
}
