// Package generation is the contract with the external report-generation
// collaborator. Only the request/response shape is owned here; what the
// collaborator does internally (models, embedding search, prompt assembly)
// is out of scope.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Request asks the collaborator to generate content for one report.
type Request struct {
	ReportType string         `json:"report_type"`
	Schema     string         `json:"schema"`
	ProjectID  string         `json:"project_id"`
	Title      string         `json:"title"`
	Sections   []string       `json:"sections"`
	Context    map[string]any `json:"context,omitempty"`
}

// SectionContent is the generated text for one requested section.
type SectionContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Response is the collaborator's answer.
type Response struct {
	Sections []SectionContent `json:"sections"`
}

// Generator produces report content for a generation request.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// HTTPGenerator calls the generation endpoint over HTTP.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPGenerator creates a generator targeting the given endpoint.
func NewHTTPGenerator(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HTTPGenerator{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Generate POSTs the request to the generation endpoint and decodes the
// response. Non-2xx statuses are returned as errors with the body included,
// truncated so a misbehaving collaborator cannot flood the job record.
func (g *HTTPGenerator) Generate(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	g.logger.Debug("Calling generation endpoint",
		slog.String("report_type", req.ReportType),
		slog.String("schema", req.Schema),
	)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("generation endpoint returned status %d: %s", resp.StatusCode, string(detail))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %w", err)
	}

	return &out, nil
}
