package lipsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dubber/internal/config"
	"dubber/internal/services"
)

// Job statuses reported by the lip-sync service.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusRejected  = "REJECTED"
)

const defaultHTTPTimeout = 60 * time.Second

// Client talks to a sync.so-compatible lip-sync generation API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	syncMode   string
	httpClient *http.Client
}

// Option customizes the lip-sync client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a lip-sync client from configuration.
func NewClient(cfg config.Lipsync, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "lipsync", "new client", "api key is required", nil)
	}
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      cfg.Model,
		syncMode:   cfg.SyncMode,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Job is the service-side state of one generation request.
type Job struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	OutputURL string `json:"outputUrl"`
	Error     string `json:"error"`
}

type generateRequest struct {
	Model          string            `json:"model"`
	Input          []generateInput   `json:"input"`
	Options        map[string]string `json:"options,omitempty"`
	OutputFileName string            `json:"outputFileName,omitempty"`
}

type generateInput struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Submit starts a lip-sync generation over hosted video and audio and
// returns the job id to poll.
func (c *Client) Submit(ctx context.Context, videoURL, audioURL, outputName string) (string, error) {
	if strings.TrimSpace(videoURL) == "" || strings.TrimSpace(audioURL) == "" {
		return "", services.Wrap(services.ErrValidation, "lipsync", "submit", "video and audio urls are required", nil)
	}
	payload := generateRequest{
		Model: c.model,
		Input: []generateInput{
			{Type: "video", URL: videoURL},
			{Type: "audio", URL: audioURL},
		},
		OutputFileName: outputName,
	}
	if c.syncMode != "" {
		payload.Options = map[string]string{"sync_mode": c.syncMode}
	}
	var job Job
	if err := c.doJSON(ctx, http.MethodPost, "/v2/generate", payload, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", services.Wrap(services.ErrUpstream, "lipsync", "submit", "response missing job id", nil)
	}
	return job.ID, nil
}

// Status fetches the current state of a generation job.
func (c *Client) Status(ctx context.Context, jobID string) (Job, error) {
	var job Job
	if err := c.doJSON(ctx, http.MethodGet, "/v2/generate/"+url.PathEscape(jobID), nil, &job); err != nil {
		return Job{}, err
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return job, nil
}

// Download fetches a completed job's output into outputPath.
func (c *Client) Download(ctx context.Context, outputURL, outputPath string) error {
	if strings.TrimSpace(outputURL) == "" {
		return services.Wrap(services.ErrUpstream, "lipsync", "download", "job has no output url", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputURL, nil)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "lipsync", "download", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "lipsync", "download", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrUpstream, "lipsync", "download",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return services.Wrap(services.ErrMediaTool, "lipsync", "download", "create output directory", err)
	}
	tmpPath := filepath.Join(filepath.Dir(outputPath), ".tmp-"+filepath.Base(outputPath))
	out, err := os.Create(tmpPath)
	if err != nil {
		return services.Wrap(services.ErrMediaTool, "lipsync", "download", "create output file", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return services.Wrap(services.ErrUpstream, "lipsync", "download", "read output stream", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrMediaTool, "lipsync", "download", "close output file", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return services.Wrap(services.ErrMediaTool, "lipsync", "download", "finalize output file", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, result any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "lipsync", method, "build url", err)
	}
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrUpstream, "lipsync", method, "encode request", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "lipsync", method, "build request", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUpstream, "lipsync", method, "request failed", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrUpstream, "lipsync", method, "read response", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrUpstream, "lipsync", method,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}
	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return services.Wrap(services.ErrUpstream, "lipsync", method, "decode response", err)
		}
	}
	return nil
}
