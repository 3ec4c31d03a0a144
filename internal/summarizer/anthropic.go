package summarizer

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
)

// AnthropicConfig configures the Claude-backed gateway.
type AnthropicConfig struct {
	APIKey string
	// Model is the Claude model id, e.g. "claude-sonnet-4-5-20250929".
	Model string
	// MaxTokens caps the generated summary length.
	MaxTokens int64
	// MaxTextBytes truncates the document text sent upstream. Zero means
	// no truncation.
	MaxTextBytes int
}

// AnthropicClient implements Gateway against the Anthropic Messages API.
type AnthropicClient struct {
	api anthropic.Client
	cfg AnthropicConfig
}

// NewAnthropicClient builds a gateway client. Retries are disabled: the core
// treats gateway failures as request failures and never retries internally.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("summarizer: api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("summarizer: model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	api := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	)
	return &AnthropicClient{api: api, cfg: cfg}, nil
}

// Summarize sends prompt + clipped document text as a single user message and
// returns the first text block of the response along with token usage.
func (c *AnthropicClient) Summarize(ctx context.Context, text, promptText string) (Result, error) {
	start := time.Now()

	body := promptText + "\n\n" + clip(text, c.cfg.MaxTextBytes)
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(body)),
		},
	})
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("claude summarization failed")
		return Result{}, &GatewayError{Op: "messages.new", Err: err}
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			log.Info().
				Dur("duration", time.Since(start)).
				Int64("input_tokens", msg.Usage.InputTokens).
				Int64("output_tokens", msg.Usage.OutputTokens).
				Msg("claude summarization completed")
			return Result{
				Text:         block.Text,
				InputTokens:  msg.Usage.InputTokens,
				OutputTokens: msg.Usage.OutputTokens,
			}, nil
		}
	}
	return Result{}, &GatewayError{Op: "messages.new", Err: errors.New("no text content in response")}
}

// Ping issues a minimal request to verify the configured model is reachable
// with the configured key. Used at startup; skippable via configuration.
func (c *AnthropicClient) Ping(ctx context.Context) error {
	_, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: 10,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("test")),
		},
	})
	if err != nil {
		return &GatewayError{Op: "ping", Err: err}
	}
	return nil
}

// clip truncates s to at most max bytes without splitting a UTF-8 rune.
func clip(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
