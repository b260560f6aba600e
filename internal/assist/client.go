// Package assist implements the HTTP client for the remote reasoning
// and transcription service.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"fieldvoice/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the assist service. Every call is fire-once: no
// automatic retry, and the configured timeout bounds each exchange.
type Client struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	APIBase string // e.g. "http://localhost:8000"
	APIKey  string // optional bearer token
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

// Text performs a text exchange: message plus job context and prior
// turns in, rendered reply out.
func (c *Client) Text(ctx context.Context, req domain.TextExchangeRequest) (*domain.TextExchangeResponse, error) {
	if req.ChatHistory == nil {
		req.ChatHistory = []domain.Turn{}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode text request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/api/v1/chat/text", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	var out domain.TextExchangeResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}

	c.logger.Info("text exchange complete",
		"reply_len", len(out.Reply),
		"warnings", len(out.SafetyWarnings),
	)
	return &out, nil
}

// Voice performs a voice exchange: one audio clip plus job context in,
// transcript and reply (and optionally a spoken rendition URL) out.
func (c *Client) Voice(ctx context.Context, clip domain.Clip, jctx domain.JobContext) (*domain.VoiceExchangeResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", clip.Filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	if jctx.Model != "" {
		writer.WriteField("model", jctx.Model)
	}
	if jctx.Step != "" {
		writer.WriteField("current_step", jctx.Step)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/api/v1/chat/voice", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(httpReq)

	var out domain.VoiceExchangeResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}

	c.logger.Info("voice exchange complete",
		"transcript_len", len(out.Transcript),
		"reply_len", len(out.Reply),
		"has_audio", out.AudioURL != "",
	)
	return &out, nil
}

// Models fetches the equipment model catalog.
func (c *Client) Models(ctx context.Context) ([]domain.EquipmentModel, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBase+"/api/v1/chat/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(httpReq)

	var out struct {
		Models []domain.EquipmentModel `json:"models"`
	}
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Healthy checks service reachability.
func (c *Client) Healthy(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiBase+"/api/v1/chat/health", nil)
	if err != nil {
		return err
	}
	c.authorize(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("assist service not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("assist service returned %d", resp.StatusCode)
	}
	return nil
}

// ResolveAudioURL turns a service-relative audio path into an absolute
// URL for playback.
func (c *Client) ResolveAudioURL(audioURL string) string {
	if audioURL == "" || strings.HasPrefix(audioURL, "http") {
		return audioURL
	}
	return c.apiBase + audioURL
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// do executes the request and decodes the JSON response into out.
// Non-2xx responses surface the service's detail message when present.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("assist API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var detail struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &detail) == nil {
			if detail.Detail != "" {
				return fmt.Errorf("assist API error (status %d): %s", resp.StatusCode, detail.Detail)
			}
			if detail.Message != "" {
				return fmt.Errorf("assist API error (status %d): %s", resp.StatusCode, detail.Message)
			}
		}
		return fmt.Errorf("assist API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode assist response: %w", err)
	}
	return nil
}
