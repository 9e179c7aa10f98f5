// Package openai implements ai.Client on top of the official OpenAI Go SDK
// using the chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/spigell/hh-interviewer/internal/ai"
)

const (
	provider     = "openai"
	defaultModel = "gpt-4o"
)

type chatBackend interface {
	complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
	stream(ctx context.Context, params openai.ChatCompletionNewParams) iter.Seq2[openai.ChatCompletionChunk, error]
}

type sdkBackend struct {
	client openai.Client
}

func (b *sdkBackend) complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return b.client.Chat.Completions.New(ctx, params)
}

func (b *sdkBackend) stream(ctx context.Context, params openai.ChatCompletionNewParams) iter.Seq2[openai.ChatCompletionChunk, error] {
	return func(yield func(openai.ChatCompletionChunk, error) bool) {
		s := b.client.Chat.Completions.NewStreaming(ctx, params)
		defer s.Close()

		for s.Next() {
			if !yield(s.Current(), nil) {
				return
			}
		}

		if err := s.Err(); err != nil {
			yield(openai.ChatCompletionChunk{}, err)
		}
	}
}

type Client struct {
	backend chatBackend
	model   string
}

// New creates a chat completions client authenticated with apiKey.
func New(apiKey, model string, opts ...option.RequestOption) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &Client{
		backend: &sdkBackend{client: openai.NewClient(opts...)},
		model:   model,
	}, nil
}

func (c *Client) Provider() string { return provider }

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) Complete(ctx context.Context, req ai.Request) (string, error) {
	params, err := c.params(req)
	if err != nil {
		return "", err
	}

	resp, err := c.backend.complete(ctx, params)
	if err != nil {
		return "", ai.NewRequestError(provider, classify(err), fmt.Errorf("chat completion: %w", err))
	}

	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ai.NewRequestError(provider, ai.KindEmptyResponse, errors.New("empty response from openai"))
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream requests a streamed completion. Transport failures surface while the
// stream is being collected.
func (c *Client) Stream(ctx context.Context, req ai.Request) (*ai.Stream, error) {
	params, err := c.params(req)
	if err != nil {
		return nil, err
	}

	chunks := c.backend.stream(ctx, params)

	return ai.NewStream(func(yield func(string, error) bool) {
		for chunk, err := range chunks {
			if err != nil {
				yield("", ai.NewRequestError(provider, classify(err), fmt.Errorf("chat completion stream: %w", err)))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if !yield(chunk.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}), nil
}

func (c *Client) params(req ai.Request) (openai.ChatCompletionNewParams, error) {
	if c == nil || c.backend == nil {
		return openai.ChatCompletionNewParams{}, errors.New("openai client is not initialized")
	}

	messages, err := convertMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, ai.NewRequestError(provider, ai.KindBadRequest, err)
	}

	return openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}, nil
}

func convertMessages(messages []ai.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if len(messages) == 0 {
		return nil, errors.New("message list must not be empty")
	}

	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case ai.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case ai.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return out, nil
}

func classify(err error) ai.ErrorKind {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return ai.ClassifyStatus(apiErr.StatusCode)
	}
	return ai.KindTransport
}
