/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Recovery reports for protodec runs. Collects per-capture results, the recovered
schema and run statistics, and renders them as an HTML page, JSON or YAML.
*/

package reporting

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/inference"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/kleascm/protodec/pkg/scanner"
	"gopkg.in/yaml.v3"
)

// Supported report formats.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Version is stamped into generated reports.
const Version = "1.0.0"

// Report is everything a recovery report shows
type Report struct {
	Title       string             `json:"title" yaml:"title"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Version     string             `json:"version" yaml:"version"`
	SessionID   string             `json:"session_id" yaml:"session_id"`
	Stats       core.StatsSnapshot `json:"stats" yaml:"stats"`
	Captures    []CaptureEntry     `json:"captures" yaml:"captures"`
	Schema      string             `json:"schema,omitempty" yaml:"schema,omitempty"`
	SchemaError string             `json:"schema_error,omitempty" yaml:"schema_error,omitempty"`
	Messages    int                `json:"messages" yaml:"messages"`
}

// CaptureEntry is one row of the capture table
type CaptureEntry struct {
	Origin   string         `json:"origin" yaml:"origin"`
	Digest   string         `json:"digest" yaml:"digest"`
	Size     int            `json:"size" yaml:"size"`
	Mode     string         `json:"mode" yaml:"mode"`
	Spans    []scanner.Span `json:"spans,omitempty" yaml:"spans,omitempty"`
	Dump     string         `json:"dump,omitempty" yaml:"dump,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
	Cached   bool           `json:"cached" yaml:"cached"`
	Duration string         `json:"duration" yaml:"duration"`
}

// Decoded reports whether the capture produced a message.
func (c CaptureEntry) Decoded() bool { return c.Error == "" }

// NewReport assembles a report. schema may be nil when inference failed or was skipped.
func NewReport(title string, results []*core.Result, schema *inference.Schema, schemaErr error, stats core.StatsSnapshot) *Report {
	r := &Report{
		Title:       title,
		GeneratedAt: time.Now().UTC(),
		Version:     Version,
		SessionID:   uuid.NewString(),
		Stats:       stats,
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		r.Captures = append(r.Captures, CaptureEntry{
			Origin:   res.Origin,
			Digest:   res.Digest,
			Size:     res.Size,
			Mode:     string(res.Mode),
			Spans:    res.Spans,
			Dump:     res.Dump,
			Error:    res.Error,
			Cached:   res.Cached,
			Duration: res.Duration.Round(time.Microsecond).String(),
		})
	}
	if schema != nil {
		r.Schema = schema.String()
		r.Messages = schema.Messages()
	}
	if schemaErr != nil {
		r.SchemaError = schemaErr.Error()
	}
	return r
}

var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

// Write renders r to w in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatHTML, "":
		return reportTemplate.Execute(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// Generator writes reports into a directory
type Generator struct {
	outputDir string
	logger    *logging.Logger
}

func NewGenerator(outputDir string, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{outputDir: outputDir, logger: logger}
}

// Generate writes <outputDir>/report.<format> and returns its path.
func (g *Generator) Generate(r *Report, format string) (string, error) {
	if format == "" {
		format = FormatHTML
	}
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(g.outputDir, "report."+format)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := Write(file, r, format); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	g.logger.Info("Report generated", map[string]interface{}{
		"path":     path,
		"format":   format,
		"captures": len(r.Captures),
		"messages": r.Messages,
	})
	return path, nil
}
