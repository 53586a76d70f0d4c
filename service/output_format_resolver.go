package service

import (
	"fmt"

	"github.com/ludo-technologies/simdup/domain"
)

// OutputFormatResolver resolves output format and file extension from flags.
type OutputFormatResolver struct{}

func NewOutputFormatResolver() *OutputFormatResolver { return &OutputFormatResolver{} }

// Determine evaluates format flags and returns the selected format and extension.
// At most one of json/csv/yaml may be true; if none are true, fallback is used.
func (r *OutputFormatResolver) Determine(json, csv, yaml bool, fallback domain.OutputFormat) (domain.OutputFormat, string, error) {
	formatCount := 0
	var format domain.OutputFormat
	var ext string

	if json {
		formatCount++
		format = domain.OutputFormatJSON
		ext = "json"
	}
	if csv {
		formatCount++
		format = domain.OutputFormatCSV
		ext = "csv"
	}
	if yaml {
		formatCount++
		format = domain.OutputFormatYAML
		ext = "yaml"
	}

	if formatCount > 1 {
		return "", "", fmt.Errorf("only one output format flag can be specified")
	}
	if formatCount == 0 {
		if fallback == "" {
			fallback = domain.OutputFormatText
		}
		return fallback, extensionFor(fallback), nil
	}
	return format, ext, nil
}

func extensionFor(format domain.OutputFormat) string {
	switch format {
	case domain.OutputFormatJSON:
		return "json"
	case domain.OutputFormatCSV:
		return "csv"
	case domain.OutputFormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}
