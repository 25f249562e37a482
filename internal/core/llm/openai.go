package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

const chatCompletionsSuffix = "/chat/completions"

// OpenAIConfig configures an OpenAI-compatible endpoint such as LM Studio.
type OpenAIConfig struct {
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
	Priority int
}

type openaiProvider struct {
	cfg    OpenAIConfig
	client *openai.Client
	logger *zerolog.Logger
}

// NewOpenAIProvider creates a provider for any OpenAI-compatible chat completions endpoint.
func NewOpenAIProvider(cfg OpenAIConfig, logger *zerolog.Logger) Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	}

	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &openaiProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

// NormalizeBaseURL accepts either an API root or a full chat completions URL.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")

	return strings.TrimSuffix(trimmed, chatCompletionsSuffix)
}

func (p *openaiProvider) Name() ProviderName {
	return ProviderOpenAI
}

func (p *openaiProvider) IsAvailable() bool {
	return p.cfg.BaseURL != "" || p.cfg.APIKey != ""
}

func (p *openaiProvider) Priority() int {
	return p.cfg.Priority
}

func (p *openaiProvider) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}

	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: wireTemperature(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%w: openai chat completion: %w", apperrors.ErrTransientExternal, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: %w", apperrors.ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	p.logger.Debug().Str(logKeyModel, model).Str("content", content).Msg("LLM response")

	return content, nil
}

// wireTemperature keeps an explicit zero on the wire; go-openai omits a literal 0.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}

	return t
}
