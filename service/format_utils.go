package service

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/simdup/domain"
)

// WriteJSON writes indented JSON for the given value to the writer.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode JSON", err)
	}
	return nil
}

// WriteYAML writes YAML for the given value to the writer.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return domain.NewOutputError("failed to encode YAML", err)
	}
	return nil
}

// WriteCSV writes a header and rows, flushing at the end.
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return domain.NewOutputError("failed to write CSV header", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return domain.NewOutputError("failed to write CSV rows", err)
	}
	return nil
}

// Standard formatting constants
const (
	HeaderWidth    = 40
	LabelWidth     = 25
	SectionPadding = 2
	ItemPadding    = 4
)

// FormatUtils provides shared formatting utilities
type FormatUtils struct{}

// NewFormatUtils creates a new format utilities instance
func NewFormatUtils() *FormatUtils {
	return &FormatUtils{}
}

// FormatMainHeader creates a standardized main header
func (f *FormatUtils) FormatMainHeader(title string) string {
	var builder strings.Builder
	builder.WriteString(title + "\n")
	builder.WriteString(strings.Repeat("=", HeaderWidth) + "\n\n")
	return builder.String()
}

// FormatSectionHeader creates a standardized section header
func (f *FormatUtils) FormatSectionHeader(title string) string {
	var builder strings.Builder
	builder.WriteString(strings.ToUpper(title) + "\n")
	builder.WriteString(strings.Repeat("-", len(title)) + "\n")
	return builder.String()
}

// FormatSectionSeparator creates a section separator
func (f *FormatUtils) FormatSectionSeparator() string {
	return "\n"
}

// FormatLabel creates a consistently formatted label with right alignment
func (f *FormatUtils) FormatLabel(label string, value interface{}) string {
	padding := LabelWidth - len(label)
	if padding < 0 {
		padding = 0
	}
	return fmt.Sprintf("%s%s: %v\n", strings.Repeat(" ", padding), label, value)
}

// FormatCount renders an integer with thousands separators
func (f *FormatUtils) FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatPercentage formats a percentage value consistently
func (f *FormatUtils) FormatPercentage(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}

// FormatFloat formats an error or probability value
func (f *FormatUtils) FormatFloat(value float64) string {
	return fmt.Sprintf("%.6f", value)
}

// FormatDuration formats duration in milliseconds consistently
func (f *FormatUtils) FormatDuration(durationMs int64) string {
	return fmt.Sprintf("%dms", durationMs)
}
