// Package report describes the shape of each report kind the generator can
// produce. Structures are plain descriptors looked up by report type; the
// generate_report handler uses them to fill in default sections and to
// assemble the final document.
package report

import (
	"encoding/json"
	"fmt"
	"time"
)

// Section is one titled block of generated content.
type Section struct {
	Number  string `json:"number,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Document is the assembled output of a generate_report job.
type Document struct {
	ReportType  string    `json:"report_type"`
	Schema      string    `json:"schema"`
	Title       string    `json:"title"`
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generated_at"`
}

// RendererFunc assembles the final document JSON from generated sections.
type RendererFunc func(doc *Document) (json.RawMessage, error)

// Structure describes one report kind: its schema identifier, whether
// sections are auto-numbered, the sections generated when the caller names
// none, and the renderer producing the stored result.
type Structure struct {
	Schema          string
	AutoNumber      bool
	DefaultSections []string
	Renderer        RendererFunc
}

var structures = map[string]Structure{
	"inspection": {
		Schema:          "inspection/v1",
		AutoNumber:      true,
		DefaultSections: []string{"Summary", "Observations", "Deficiencies", "Recommendations"},
		Renderer:        sectionRenderer(true),
	},
	"deficiency_summary": {
		Schema:          "deficiency-summary/v1",
		AutoNumber:      true,
		DefaultSections: []string{"Deficiencies", "Severity Breakdown", "Corrective Actions"},
		Renderer:        sectionRenderer(true),
	},
	"progress": {
		Schema:          "progress/v1",
		AutoNumber:      false,
		DefaultSections: []string{"Work Completed", "Work Planned", "Issues"},
		Renderer:        sectionRenderer(false),
	},
}

// ByType returns the structure registered for the given report type.
func ByType(reportType string) (Structure, bool) {
	s, ok := structures[reportType]
	return s, ok
}

// Types returns the registered report types.
func Types() []string {
	types := make([]string, 0, len(structures))
	for t := range structures {
		types = append(types, t)
	}
	return types
}

// sectionRenderer returns a renderer that numbers the sections 1..n when
// autoNumber is set and marshals the document as-is otherwise. Each structure
// carries its own renderer so rendering never reaches back into the table.
func sectionRenderer(autoNumber bool) RendererFunc {
	return func(doc *Document) (json.RawMessage, error) {
		if autoNumber {
			for i := range doc.Sections {
				doc.Sections[i].Number = fmt.Sprintf("%d", i+1)
			}
		}

		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to render report document: %w", err)
		}

		return out, nil
	}
}
