// Package report is the client side of the external PDF renderer service.
// Rendering itself is a black box; this layer only ships the query, rows
// and analysis text over and receives the finished document bytes back.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/insightforge/fabric-analytics/internal/config"
)

// Generator is the consumed report generation contract. An empty byte
// slice with a nil error means the renderer declined to produce output.
type Generator interface {
	GeneratePDF(ctx context.Context, query string, rows []map[string]interface{}, analysisText, title string, recipients []string) ([]byte, error)
}

// renderPayload is the wire request for the renderer's /render endpoint.
type renderPayload struct {
	Query      string                   `json:"query"`
	Rows       []map[string]interface{} `json:"rows"`
	Analysis   string                   `json:"analysis"`
	Title      string                   `json:"title"`
	Recipients []string                 `json:"recipients"`
	Format     string                   `json:"format"`
}

// RendererClient talks HTTP to the report renderer service.
type RendererClient struct {
	baseURL string
	client  *http.Client
}

// NewRendererClient builds the renderer client, or nil when no renderer
// URL is configured. A nil generator surfaces as "service unavailable" at
// the workflow endpoint.
func NewRendererClient(cfg *config.Config) *RendererClient {
	if cfg.Report.URL == "" {
		return nil
	}
	return &RendererClient{
		baseURL: cfg.Report.URL,
		client:  &http.Client{Timeout: cfg.Report.Timeout},
	}
}

// GeneratePDF renders the report and returns the document bytes.
func (c *RendererClient) GeneratePDF(ctx context.Context, query string, rows []map[string]interface{}, analysisText, title string, recipients []string) ([]byte, error) {
	body, err := json.Marshal(renderPayload{
		Query:      query,
		Rows:       rows,
		Analysis:   analysisText,
		Title:      title,
		Recipients: recipients,
		Format:     "pdf",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("renderer returned HTTP %d", resp.StatusCode)
	}

	doc, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rendered document: %w", err)
	}
	return doc, nil
}
