package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/ai"
	"github.com/spigell/hh-interviewer/internal/ai/gemini"
	"github.com/spigell/hh-interviewer/internal/ai/mock"
	"github.com/spigell/hh-interviewer/internal/ai/openai"
	"github.com/spigell/hh-interviewer/internal/interview"
	"github.com/spigell/hh-interviewer/internal/secrets"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"
	providerMock   = "mock"
)

func newClient(ctx context.Context, cfg *AIConfig) (ai.Client, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case providerMock:
		return mock.New(cfg.Model), nil
	case "", providerOpenAI:
		apiKey, err := loadAPIKey(cfg, "openai api key", "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		client, err := openai.New(apiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	case providerGemini:
		apiKey, err := loadAPIKey(cfg, "gemini api key", "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if err != nil {
			return nil, err
		}
		client, err := gemini.New(ctx, apiKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func loadAPIKey(cfg *AIConfig, name string, env ...string) (string, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  name,
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   env,
	})
	if err != nil {
		return "", fmt.Errorf("%w (set ai.api-key-file, ai.api-key or %s)", err, strings.Join(env, ", "))
	}
	return apiKey, nil
}

func newEngine(ctx context.Context, cfg *AIConfig, logger *zap.Logger, opts ...interview.Option) (*interview.Engine, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("building ai client: %w", err)
	}

	logger.Info("using language model",
		zap.String("provider", client.Provider()),
		zap.String("model", client.Model()),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)

	opts = append([]interview.Option{
		interview.WithRequestTimeout(cfg.RequestTimeout),
		interview.WithMaxLogLength(cfg.MaxLogLength),
	}, opts...)

	return interview.NewEngine(client, logger, opts...), nil
}
