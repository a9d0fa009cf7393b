// Package export renders the night history for use outside sleeptrack.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fakeyudi/sleeptrack/internal/format"
	"github.com/fakeyudi/sleeptrack/internal/night"
)

// Renderer serializes nights to bytes.
type Renderer interface {
	Render(nights []night.Night) ([]byte, error)
	// Ext is the file extension for the rendered output, with the dot.
	Ext() string
}

// ForFormat returns the renderer for "json" or "markdown".
func ForFormat(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want json or markdown)", name)
	}
}

// Record is the exported shape of a night.
type Record struct {
	ID           string     `json:"id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	InProgress   bool       `json:"in_progress"`
	DurationSecs int64      `json:"duration_seconds"`
	Quality      *int       `json:"quality,omitempty"`
	QualityLabel string     `json:"quality_label,omitempty"`
}

// NewRecord converts n, leaving unset fields empty for open or unrated nights.
func NewRecord(n night.Night) Record {
	r := Record{
		ID:         n.ID,
		StartTime:  n.StartTime.UTC(),
		InProgress: n.InProgress(),
	}
	if !r.InProgress {
		end := n.EndTime.UTC()
		r.EndTime = &end
		r.DurationSecs = int64(n.Duration() / time.Second)
	}
	if n.Quality.Valid() {
		q := int(n.Quality)
		r.Quality = &q
		r.QualityLabel = n.Quality.String()
	}
	return r
}

// JSONRenderer renders nights as an indented JSON array.
type JSONRenderer struct{}

func (r *JSONRenderer) Ext() string { return ".json" }

func (r *JSONRenderer) Render(nights []night.Night) ([]byte, error) {
	records := make([]Record, len(nights))
	for i, n := range nights {
		records[i] = NewRecord(n)
	}
	return json.MarshalIndent(records, "", "  ")
}

// MarkdownRenderer renders nights as a Markdown table.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Ext() string { return ".md" }

func (r *MarkdownRenderer) Render(nights []night.Night) ([]byte, error) {
	var sb strings.Builder

	sb.WriteString("# Sleep history\n\n")
	if len(nights) == 0 {
		sb.WriteString("_No nights recorded._\n")
		return []byte(sb.String()), nil
	}

	var total time.Duration
	closed := 0
	for _, n := range nights {
		if !n.InProgress() {
			total += n.Duration()
			closed++
		}
	}
	fmt.Fprintf(&sb, "- Nights: %d\n", len(nights))
	if closed > 0 {
		fmt.Fprintf(&sb, "- Average: %s\n", format.Duration(total/time.Duration(closed)))
	}
	sb.WriteString("\n")

	sb.WriteString("| ID | Start | End | Slept | Quality |\n")
	sb.WriteString("|----|-------|-----|-------|---------|\n")
	for _, n := range nights {
		end, slept := "_in progress_", "-"
		if !n.InProgress() {
			end = n.EndTime.Format("2006-01-02 15:04")
			slept = format.Duration(n.Duration())
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			n.ShortID(),
			n.StartTime.Format("2006-01-02 15:04"),
			end,
			slept,
			n.Quality,
		)
	}
	return []byte(sb.String()), nil
}
