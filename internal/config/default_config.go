package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"
)

// defaultConfigTmpl contains the embedded default configuration template
//
//go:embed default_config.toml.tmpl
var defaultConfigTmpl string

// DefaultConfigValues holds all values used to render the default config template.
// All values are sourced from DefaultConfig to keep a single source of truth.
type DefaultConfigValues struct {
	SketchType      string
	NumPerm         int
	MasterSeed      uint64
	Threshold       string
	Amplified       bool
	MinimumR1       int
	FPWeight        string
	FNWeight        string
	CachePath       string
	ExactLength     bool
	IncludePatterns string
	Format          string
	SortBy          string
}

func newDefaultConfigValues() DefaultConfigValues {
	cfg := DefaultConfig()
	quoted := make([]string, len(cfg.Input.IncludePatterns))
	for i, p := range cfg.Input.IncludePatterns {
		quoted[i] = strconv.Quote(p)
	}
	return DefaultConfigValues{
		SketchType:      cfg.Sketch.Type,
		NumPerm:         cfg.Sketch.NumPerm,
		MasterSeed:      cfg.Sketch.MasterSeed,
		Threshold:       formatFloat(cfg.LSH.Threshold),
		Amplified:       cfg.LSH.Amplified,
		MinimumR1:       cfg.LSH.MinimumR1,
		FPWeight:        formatFloat(cfg.LSH.FPWeight),
		FNWeight:        formatFloat(cfg.LSH.FNWeight),
		CachePath:       cfg.Optimizer.CachePath,
		ExactLength:     cfg.Optimizer.ExactLength,
		IncludePatterns: strings.Join(quoted, ", "),
		Format:          cfg.Output.Format,
		SortBy:          cfg.Output.SortBy,
	}
}

// formatFloat always keeps a fraction so TOML reads the value back as a float.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// GenerateDefaultConfigTOML renders the default config template
// and returns the resulting TOML string.
func GenerateDefaultConfigTOML() (string, error) {
	tmpl, err := template.New("default_config").Parse(defaultConfigTmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse default config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, newDefaultConfigValues()); err != nil {
		return "", fmt.Errorf("failed to render default config template: %w", err)
	}

	return buf.String(), nil
}
