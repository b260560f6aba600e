// Package workorder implements the HTTP client for the job management
// service: work orders, work reports, construction photos and used
// materials.
package workorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"fieldvoice/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the work-order service.
type Client struct {
	apiBase string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

type Config struct {
	APIBase string
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

// ListFilter narrows a work-order listing. Zero values mean no filter.
type ListFilter struct {
	Status string
	Date   string // YYYY-MM-DD
}

// List fetches work orders, optionally filtered by status and date.
func (c *Client) List(ctx context.Context, filter ListFilter) ([]domain.WorkOrder, error) {
	endpoint := c.apiBase + "/api/v1/work-orders"
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status", filter.Status)
	}
	if filter.Date != "" {
		params.Set("date", filter.Date)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var out []domain.WorkOrder
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one work order by ID.
func (c *Client) Get(ctx context.Context, id string) (*domain.WorkOrder, error) {
	var out domain.WorkOrder
	if err := c.doJSON(ctx, http.MethodGet, c.apiBase+"/api/v1/work-orders/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create registers a new work order.
func (c *Client) Create(ctx context.Context, order domain.WorkOrder) (*domain.WorkOrder, error) {
	var out domain.WorkOrder
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase+"/api/v1/work-orders", order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches fields of an existing work order. The fields map uses
// the service's snake_case keys, e.g. {"status": "in_progress"}.
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) (*domain.WorkOrder, error) {
	var out domain.WorkOrder
	if err := c.doJSON(ctx, http.MethodPatch, c.apiBase+"/api/v1/work-orders/"+id, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReports fetches all work reports.
func (c *Client) ListReports(ctx context.Context) ([]domain.WorkReport, error) {
	var out []domain.WorkReport
	if err := c.doJSON(ctx, http.MethodGet, c.apiBase+"/api/v1/work-reports", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReport fetches one work report by ID.
func (c *Client) GetReport(ctx context.Context, id string) (*domain.WorkReport, error) {
	var out domain.WorkReport
	if err := c.doJSON(ctx, http.MethodGet, c.apiBase+"/api/v1/work-reports/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateReport opens a draft report for a work order.
func (c *Client) CreateReport(ctx context.Context, report domain.WorkReport) (*domain.WorkReport, error) {
	var out domain.WorkReport
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase+"/api/v1/work-reports", report, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateReport patches fields of a draft report.
func (c *Client) UpdateReport(ctx context.Context, id string, fields map[string]any) (*domain.WorkReport, error) {
	var out domain.WorkReport
	if err := c.doJSON(ctx, http.MethodPatch, c.apiBase+"/api/v1/work-reports/"+id, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitReport finalizes a draft report. Submission is one-way.
func (c *Client) SubmitReport(ctx context.Context, id string) (*domain.WorkReport, error) {
	var out domain.WorkReport
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase+"/api/v1/work-reports/"+id+"/submit", nil, &out); err != nil {
		return nil, err
	}
	c.logger.Info("work report submitted", "id", id)
	return &out, nil
}

// UploadPhoto attaches a construction photo to a report.
func (c *Client) UploadPhoto(ctx context.Context, reportID string, photoType domain.PhotoType, caption, filename string, data []byte) (*domain.WorkPhoto, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("photo", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write photo data: %w", err)
	}
	writer.WriteField("work_report_id", reportID)
	writer.WriteField("photo_type", string(photoType))
	if caption != "" {
		writer.WriteField("caption", caption)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/api/v1/work-photos", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	var out domain.WorkPhoto
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePhoto removes a construction photo.
func (c *Client) DeletePhoto(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.apiBase+"/api/v1/work-photos/"+id, nil, nil)
}

// AddMaterial records a used material against a report.
func (c *Client) AddMaterial(ctx context.Context, material domain.UsedMaterial) (*domain.UsedMaterial, error) {
	var out domain.UsedMaterial
	if err := c.doJSON(ctx, http.MethodPost, c.apiBase+"/api/v1/used-materials", material, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMaterial patches fields of a used-material record.
func (c *Client) UpdateMaterial(ctx context.Context, id string, fields map[string]any) (*domain.UsedMaterial, error) {
	var out domain.UsedMaterial
	if err := c.doJSON(ctx, http.MethodPatch, c.apiBase+"/api/v1/used-materials/"+id, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMaterial removes a used-material record.
func (c *Client) DeleteMaterial(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.apiBase+"/api/v1/used-materials/"+id, nil, nil)
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doJSON marshals body (when non-nil), executes the request and decodes
// the response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("work-order API request: %w", err)
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
				return fmt.Errorf("work-order API error (status %d): %s", resp.StatusCode, detail.Detail)
			}
			if detail.Message != "" {
				return fmt.Errorf("work-order API error (status %d): %s", resp.StatusCode, detail.Message)
			}
		}
		return fmt.Errorf("work-order API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode work-order response: %w", err)
	}
	return nil
}
