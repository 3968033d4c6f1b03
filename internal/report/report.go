// Package report exports the analytics snapshot already loaded on the admin
// page as a downloadable NAAC or NIRF artifact. Nothing is re-fetched.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
)

// Type is an accreditation framework.
type Type string

const (
	TypeNAAC Type = "NAAC"
	TypeNIRF Type = "NIRF"
)

// Format is an artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// DefaultSystemName prefixes artifact file names.
const DefaultSystemName = "smart_student_hub"

// Disclaimer is embedded in every artifact.
const Disclaimer = "Snapshot export of the analytics shown in the portal. Not an authoritative NAAC/NIRF accreditation document."

// ParseType accepts a report type in any case.
func ParseType(raw string) (Type, error) {
	switch Type(strings.ToUpper(strings.TrimSpace(raw))) {
	case TypeNAAC:
		return TypeNAAC, nil
	case TypeNIRF:
		return TypeNIRF, nil
	default:
		return "", apperr.E(apperr.KindInvalidInput, "report.type", fmt.Sprintf("unsupported report type %q", raw))
	}
}

// ParseFormat accepts a format name; blank means JSON.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", apperr.E(apperr.KindInvalidInput, "report.format", fmt.Sprintf("unsupported format %q", raw))
	}
}

// Artifact is a generated download.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Document is the structured content of an artifact.
type Document struct {
	System          string                   `json:"system" yaml:"system"`
	ReportType      Type                     `json:"report_type" yaml:"report_type"`
	GeneratedAt     string                   `json:"generated_at" yaml:"generated_at"`
	Disclaimer      string                   `json:"disclaimer" yaml:"disclaimer"`
	TotalStudents   int                      `json:"total_students" yaml:"total_students"`
	TotalActivities int                      `json:"total_activities" yaml:"total_activities"`
	DepartmentWise  []models.DepartmentCount `json:"department_wise" yaml:"department_wise"`
}

// Exporter builds artifacts.
type Exporter struct {
	systemName string
	now        func() time.Time
}

// NewExporter builds an exporter. A blank system name uses DefaultSystemName.
func NewExporter(systemName string) *Exporter {
	systemName = strings.TrimSpace(systemName)
	if systemName == "" {
		systemName = DefaultSystemName
	}
	return &Exporter{systemName: systemName, now: time.Now}
}

// Filename returns the artifact name for a type and format.
func (e *Exporter) Filename(reportType Type, format Format) string {
	return fmt.Sprintf("%s_%s_report.%s", e.systemName, reportType, format)
}

// Export renders snapshot. A nil snapshot means analytics were never loaded.
func (e *Exporter) Export(snapshot *models.Analytics, reportType Type, format Format) (Artifact, error) {
	if snapshot == nil {
		return Artifact{}, apperr.E(apperr.KindInvalidInput, "report.export", "analytics have not been loaded")
	}
	if _, err := ParseType(string(reportType)); err != nil {
		return Artifact{}, err
	}
	if format == "" {
		format = FormatJSON
	}

	doc := e.document(snapshot, reportType)
	var (
		body        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatJSON:
		body, err = json.MarshalIndent(doc, "", "  ")
		body = append(body, '\n')
		contentType = "application/json"
	case FormatYAML:
		body, err = encodeYAML(doc)
		contentType = "application/yaml"
	case FormatCSV:
		body, err = encodeCSV(doc)
		contentType = "text/csv"
	default:
		return Artifact{}, apperr.E(apperr.KindInvalidInput, "report.format", fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("encode %s report: %w", format, err)
	}

	return Artifact{
		Filename:    e.Filename(reportType, format),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (e *Exporter) document(snapshot *models.Analytics, reportType Type) Document {
	departments := make([]models.DepartmentCount, 0, len(snapshot.DepartmentWise))
	departments = append(departments, snapshot.DepartmentWise...)
	return Document{
		System:          e.systemName,
		ReportType:      reportType,
		GeneratedAt:     e.now().UTC().Format(time.RFC3339),
		Disclaimer:      Disclaimer,
		TotalStudents:   snapshot.TotalStudents,
		TotalActivities: snapshot.TotalActivities,
		DepartmentWise:  departments,
	}
}

func encodeYAML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCSV(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "system", doc.System},
		{"summary", "report_type", string(doc.ReportType)},
		{"summary", "generated_at", doc.GeneratedAt},
		{"summary", "total_students", strconv.Itoa(doc.TotalStudents)},
		{"summary", "total_activities", strconv.Itoa(doc.TotalActivities)},
		{"summary", "disclaimer", doc.Disclaimer},
	}
	for _, entry := range doc.DepartmentWise {
		rows = append(rows, []string{"department", entry.Department, strconv.Itoa(entry.Count)})
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
