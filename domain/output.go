package domain

import (
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatCSV  OutputFormat = "csv"
)

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML, OutputFormatCSV:
		return f, nil
	case "":
		return OutputFormatText, nil
	default:
		return "", NewUnsupportedFormatError(s)
	}
}

// ReportWriter abstracts writing reports to a destination (file or writer).
//
// Implementations live in the service layer.
type ReportWriter interface {
	// Write writes formatted content using the provided writeFunc.
	// - If outputPath is non-empty, implementations should create/truncate the file
	//   at that path and pass the file as the writer to writeFunc.
	// - If outputPath is empty, implementations should pass the provided writer to writeFunc.
	Write(writer io.Writer, outputPath string, format OutputFormat, writeFunc func(io.Writer) error) error
}

// ProgressManager manages progress tracking for long running stages
type ProgressManager interface {
	// Initialize sets up progress tracking with a description and the maximum value
	Initialize(description string, maxValue int)

	// Start starts the progress bar
	Start()

	// Complete marks the progress as completed
	Complete(success bool)

	// Update updates the progress
	Update(processed, total int)

	// SetWriter sets the output writer for progress bars
	SetWriter(writer io.Writer)

	// IsInteractive returns true if progress bars should be shown
	IsInteractive() bool

	// Close cleans up any resources
	Close()
}

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	ErrorCategoryInput      ErrorCategory = "Input Error"
	ErrorCategoryConfig     ErrorCategory = "Configuration Error"
	ErrorCategoryProcessing ErrorCategory = "Processing Error"
	ErrorCategoryOutput     ErrorCategory = "Output Error"
	ErrorCategoryTimeout    ErrorCategory = "Timeout Error"
	ErrorCategoryUnknown    ErrorCategory = "Unknown Error"
)

// CategorizedError represents an error with category information
type CategorizedError struct {
	Category ErrorCategory
	Message  string
	Original error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Original != nil {
		return e.Original.Error()
	}
	return e.Message
}

// ErrorCategorizer categorizes errors for better reporting
type ErrorCategorizer interface {
	// Categorize determines the category of an error
	Categorize(err error) *CategorizedError

	// GetRecoverySuggestions returns recovery suggestions for an error category
	GetRecoverySuggestions(category ErrorCategory) []string
}

// MetricsWriter exports collected run metrics
type MetricsWriter interface {
	// WritePrometheus writes every metric in Prometheus text format
	WritePrometheus(w io.Writer)
}
