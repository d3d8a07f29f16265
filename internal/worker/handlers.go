package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldscope/reportq/internal/domain"
	"github.com/fieldscope/reportq/internal/generation"
	"github.com/fieldscope/reportq/internal/report"
)

// GenerateReportPayload is the payload for generate_report jobs.
type GenerateReportPayload struct {
	ReportType string         `json:"report_type"`
	ProjectID  string         `json:"project_id"`
	Title      string         `json:"title"`
	Sections   []string       `json:"sections,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// NewHandlerRegistry builds the registry with all known job types bound.
func NewHandlerRegistry(gen generation.Generator, logger *slog.Logger) *Registry {
	r := NewRegistry()
	r.Register(domain.JobTypeGenerateReport, GenerateReportHandler(gen, logger))
	r.Register(domain.JobTypeExtractPDFKnowledge, NotImplementedHandler(domain.JobTypeExtractPDFKnowledge))
	r.Register(domain.JobTypeImportTrainingData, NotImplementedHandler(domain.JobTypeImportTrainingData))
	return r
}

// GenerateReportHandler resolves the report structure for the requested
// type, asks the generation collaborator for section content, and renders
// the result document.
func GenerateReportHandler(gen generation.Generator, logger *slog.Logger) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
		var p GenerateReportPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("failed to parse generate_report payload: %w", err)
		}

		if p.ReportType == "" {
			return nil, fmt.Errorf("generate_report payload missing report_type")
		}
		if p.ProjectID == "" {
			return nil, fmt.Errorf("generate_report payload missing project_id")
		}

		structure, ok := report.ByType(p.ReportType)
		if !ok {
			return nil, fmt.Errorf("unknown report type %q (known: %s)",
				p.ReportType, strings.Join(report.Types(), ", "))
		}

		sections := p.Sections
		if len(sections) == 0 {
			sections = structure.DefaultSections
		}

		resp, err := gen.Generate(ctx, &generation.Request{
			ReportType: p.ReportType,
			Schema:     structure.Schema,
			ProjectID:  p.ProjectID,
			Title:      p.Title,
			Sections:   sections,
			Context:    p.Context,
		})
		if err != nil {
			return nil, fmt.Errorf("report generation failed: %w", err)
		}

		doc := &report.Document{
			ReportType:  p.ReportType,
			Schema:      structure.Schema,
			Title:       p.Title,
			Sections:    make([]report.Section, len(resp.Sections)),
			GeneratedAt: time.Now().UTC(),
		}
		for i, s := range resp.Sections {
			doc.Sections[i] = report.Section{Title: s.Title, Content: s.Content}
		}

		logger.Info("Report generated",
			slog.String("report_type", p.ReportType),
			slog.String("project_id", p.ProjectID),
			slog.Int("sections", len(doc.Sections)),
		)

		return structure.Renderer(doc)
	}
}

// NotImplementedHandler is the stub for job types that are accepted by the
// queue but have no implementation yet. The job fails with a message naming
// the type so the gap is visible in the job record.
func NotImplementedHandler(jobType string) HandlerFunc {
	return func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotImplemented, jobType)
	}
}
