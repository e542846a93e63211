package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// ClaudeConfig configures the Anthropic provider.
type ClaudeConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Claude implements Provider using the Anthropic Messages API.
type Claude struct {
	client    anthropic.Client
	cfg       ClaudeConfig
	logger    *zap.Logger
	maxTokens int
}

// NewClaude builds a Claude provider.
func NewClaude(cfg ClaudeConfig, logger *zap.Logger) (*Claude, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Claude{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:       cfg,
		logger:    logger,
		maxTokens: maxTokens,
	}, nil
}

// Name identifies the provider in metrics and logs.
func (c *Claude) Name() string {
	return "claude"
}

// Generate sends the prompt and returns the concatenated text blocks.
func (c *Claude) Generate(ctx context.Context, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if c.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(c.cfg.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(callCtx, params)
	if err != nil {
		return "", classify(c.Name(), err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	c.logger.Debug("claude completion",
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Int("response_len", out.Len()),
		zap.Duration("duration", time.Since(start)),
	)
	return out.String(), nil
}
