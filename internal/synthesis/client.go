package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubber/internal/config"
	"dubber/internal/services"
)

const defaultHTTPTimeout = 120 * time.Second

// Client talks to an ElevenLabs-compatible text-to-speech API.
type Client struct {
	apiKey     string
	voiceID    string
	baseURL    string
	modelID    string
	settings   voiceSettings
	httpClient *http.Client
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Option customizes the synthesis client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithVoiceID overrides the configured voice.
func WithVoiceID(voiceID string) Option {
	return func(c *Client) {
		voiceID = strings.TrimSpace(voiceID)
		if voiceID != "" {
			c.voiceID = voiceID
		}
	}
}

// NewClient constructs a synthesis client from configuration.
func NewClient(cfg config.TTS, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "synthesis", "new client", "tts api key is required", nil)
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		voiceID: strings.TrimSpace(cfg.VoiceID),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		modelID: cfg.ModelID,
		settings: voiceSettings{
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			Style:           cfg.Style,
			UseSpeakerBoost: cfg.SpeakerBoost,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Synthesize renders text as speech audio and writes it to outputPath.
// Empty text produces an empty file so downstream stages see the segment's
// slot without any audio to place in it.
func (c *Client) Synthesize(ctx context.Context, text, outputPath string) error {
	if c.voiceID == "" {
		return services.Wrap(services.ErrConfiguration, "synthesis", "synthesize", "tts voice id is required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrMediaTool, "synthesis", "synthesize", "create output directory", err)
	}
	if strings.TrimSpace(text) == "" {
		if err := os.WriteFile(outputPath, nil, 0o644); err != nil {
			return services.Wrap(services.ErrMediaTool, "synthesis", "synthesize", "write empty clip", err)
		}
		return nil
	}

	endpoint, err := url.JoinPath(c.baseURL, "/v1/text-to-speech/", c.voiceID)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "synthesis", "synthesize", "build url", err)
	}
	encoded, err := json.Marshal(synthesizeRequest{
		Text:          text,
		ModelID:       c.modelID,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return services.Wrap(services.ErrUpstream, "synthesis", "synthesize", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrUpstream, "synthesis", "synthesize", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrTimeout, "synthesis", "synthesize", "request cancelled", err)
		}
		return services.Wrap(services.ErrUpstream, "synthesis", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return services.Wrap(services.ErrUpstream, "synthesis", "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	tmpPath := filepath.Join(filepath.Dir(outputPath), ".tmp-"+filepath.Base(outputPath))
	out, err := os.Create(tmpPath)
	if err != nil {
		return services.Wrap(services.ErrMediaTool, "synthesis", "synthesize", "create clip file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrUpstream, "synthesis", "synthesize", "read audio stream", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrMediaTool, "synthesis", "synthesize", "close clip file", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrMediaTool, "synthesis", "synthesize", "finalize clip file", err)
	}
	return nil
}

// Voice is one entry from the provider's voice catalog.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Voices lists the voices available to the configured account, cloned
// voices included.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/v1/voices")
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "synthesis", "list voices", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "synthesis", "list voices", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "synthesis", "list voices", "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrUpstream, "synthesis", "list voices", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrUpstream, "synthesis", "list voices",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	var decoded struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "synthesis", "list voices", "decode response", err)
	}
	return decoded.Voices, nil
}

// CloneVoice uploads a speaker reference recording and returns the new
// voice id.
func (c *Client) CloneVoice(ctx context.Context, name, samplePath string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", services.Wrap(services.ErrValidation, "synthesis", "clone voice", "voice name is required", nil)
	}
	sample, err := os.Open(samplePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "synthesis", "clone voice", "open speaker reference", err)
	}
	defer sample.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", name); err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "encode form", err)
	}
	part, err := writer.CreateFormFile("files", filepath.Base(samplePath))
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "encode form", err)
	}
	if _, err := io.Copy(part, sample); err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "read speaker reference", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "encode form", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/v1/voices/add")
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "build request", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	var decoded struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "decode response", err)
	}
	if decoded.VoiceID == "" {
		return "", services.Wrap(services.ErrUpstream, "synthesis", "clone voice", "response missing voice_id", nil)
	}
	return decoded.VoiceID, nil
}
