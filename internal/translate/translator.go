package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"dubber/internal/config"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/segment"
	"dubber/internal/services"
)

// Translator turns source-language segment text into target-language text.
// Implementations must preserve index, timing, and order.
type Translator interface {
	TranslateSegments(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error)
}

// Client translates segments through an OpenAI-compatible chat completions
// endpoint.
type Client struct {
	api        *openai.Client
	model      string
	sourceLang string
	targetLang string
	timeout    time.Duration
	logger     *slog.Logger
}

var _ Translator = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "translate")
	}
}

// New creates a translation client from configuration.
func New(cfg config.Translation, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "translate", "", "translation.api_key is required (set TRANSLATE_API_KEY)", nil)
	}
	aiConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		aiConfig.BaseURL = cfg.BaseURL
	}
	client := &Client{
		api:        openai.NewClientWithConfig(aiConfig),
		model:      cfg.Model,
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
		timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// TranslateSegments fills TargetText for every segment, one request per
// segment, preserving index, timing, and order. A missing translation for
// any index aborts with an upstream error naming the segment.
func (c *Client) TranslateSegments(ctx context.Context, segments []segment.Segment) ([]segment.Segment, error) {
	out := make([]segment.Segment, len(segments))
	copy(out, segments)

	for i := range out {
		text := strings.TrimSpace(out[i].SourceText)
		if text == "" {
			out[i].TargetText = ""
			continue
		}
		translated, err := c.translateText(ctx, text)
		if err != nil {
			return nil, services.Wrap(services.ErrUpstream, "translate",
				fmt.Sprintf("segment %d", out[i].Index), "", err)
		}
		if translated == "" {
			return nil, services.Wrap(services.ErrUpstream, "translate",
				fmt.Sprintf("segment %d", out[i].Index), "provider returned empty translation", nil)
		}
		out[i].TargetText = translated
		c.logger.Debug("segment translated",
			logging.Int(logging.FieldSegment, out[i].Index),
			logging.Int("source_chars", len(text)),
			logging.Int("target_chars", len(translated)),
		)
	}

	if err := verifyAlignment(segments, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) translateText(ctx context.Context, text string) (string, error) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(
		"Translate the following %s text to %s.\nReturn ONLY the translated text, without quotes or any explanation.\n\n%s",
		language.DisplayName(c.sourceLang),
		language.DisplayName(c.targetLang),
		text,
	)

	resp, err := c.api.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// verifyAlignment guarantees the 1:1 index correspondence the aligner relies
// on: same count, same index set, untouched timing.
func verifyAlignment(in, out []segment.Segment) error {
	if len(in) != len(out) {
		return services.Wrap(services.ErrUpstream, "translate", "",
			fmt.Sprintf("segment count changed: %d in, %d out", len(in), len(out)), nil)
	}
	for i := range in {
		if in[i].Index != out[i].Index {
			return services.Wrap(services.ErrUpstream, "translate", "",
				fmt.Sprintf("index mismatch at position %d: %d became %d", i, in[i].Index, out[i].Index), nil)
		}
		if in[i].StartSec != out[i].StartSec || in[i].EndSec != out[i].EndSec {
			return services.Wrap(services.ErrUpstream, "translate",
				fmt.Sprintf("segment %d", in[i].Index), "timing changed during translation", nil)
		}
	}
	return nil
}
