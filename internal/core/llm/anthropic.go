package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"

	apperrors "github.com/lueurxax/telegram-relay/internal/core/errors"
)

const (
	anthropicMaxTokens = 1024
	contentTypeText    = "text"
)

// AnthropicConfig configures the Claude provider.
type AnthropicConfig struct {
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	Priority int
}

type anthropicProvider struct {
	cfg    AnthropicConfig
	client anthropic.Client
	logger *zerolog.Logger
}

// NewAnthropicProvider creates a new Anthropic LLM provider.
func NewAnthropicProvider(cfg AnthropicConfig, logger *zerolog.Logger) Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// One attempt per batch.
		option.WithMaxRetries(0),
	}

	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &anthropicProvider{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		logger: logger,
	}
}

func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

func (p *anthropicProvider) IsAvailable() bool {
	return p.cfg.APIKey != ""
}

func (p *anthropicProvider) Priority() int {
	return p.cfg.Priority
}

func (p *anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	// Request.Model targets the primary endpoint; Claude always uses its own model.
	model := anthropic.Model(p.cfg.Model)

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		Temperature: anthropic.Float(float64(req.Temperature)),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: anthropic messages: %w", apperrors.ErrTransientExternal, err)
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic messages: %w", apperrors.ErrEmptyResponse)
	}

	text := strings.TrimSpace(extractTextFromResponse(resp))
	p.logger.Debug().Str(logKeyModel, string(model)).Str("content", text).Msg("LLM response")

	return text, nil
}

func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}
