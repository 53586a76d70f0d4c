package domain

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/simdup/internal/lsh"
	"github.com/ludo-technologies/simdup/internal/optimizer"
)

// ParamsRequest asks for the banding parameters of one configuration
type ParamsRequest struct {
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	NumPerm     int     `json:"num_perm" yaml:"num_perm"`
	FPWeight    float64 `json:"fp_weight" yaml:"fp_weight"`
	FNWeight    float64 `json:"fn_weight" yaml:"fn_weight"`
	Amplified   bool    `json:"amplified" yaml:"amplified"`
	MinimumR1   int     `json:"minimum_r1" yaml:"minimum_r1"`
	ExactLength bool    `json:"exact_length" yaml:"exact_length"`
	Workers     int     `json:"workers" yaml:"workers"`

	CachePath string `json:"cache_path" yaml:"cache_path"`
	NoCache   bool   `json:"no_cache" yaml:"no_cache"`

	OutputFormat OutputFormat `json:"output_format" yaml:"output_format"`
	OutputWriter io.Writer    `json:"-" yaml:"-"`
	OutputPath   string       `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	ShowProgress bool         `json:"-" yaml:"-"`
}

// Validate validates the params request
func (r *ParamsRequest) Validate() error {
	if !(r.Threshold > 0 && r.Threshold < 1) {
		return NewValidationError(fmt.Sprintf("threshold must be in (0, 1), got %v", r.Threshold))
	}
	if r.NumPerm <= 0 {
		return NewValidationError(fmt.Sprintf("num_perm must be positive, got %d", r.NumPerm))
	}
	if r.MinimumR1 < 1 {
		return NewValidationError(fmt.Sprintf("minimum_r1 must be >= 1, got %d", r.MinimumR1))
	}
	if r.FPWeight < 0 || r.FNWeight < 0 {
		return NewValidationError("fp_weight and fn_weight must not be negative")
	}
	return nil
}

// Options converts the request into optimizer options.
func (r *ParamsRequest) Options() optimizer.Options {
	opts := optimizer.DefaultOptions(r.Threshold, r.NumPerm)
	opts.FPWeight = r.FPWeight
	opts.FNWeight = r.FNWeight
	opts.Amplified = r.Amplified
	opts.MinR1 = r.MinimumR1
	opts.ExactLength = r.ExactLength
	opts.Workers = r.Workers
	return opts
}

// DefaultParamsRequest returns a request carrying the defaults
func DefaultParamsRequest() *ParamsRequest {
	return &ParamsRequest{
		Threshold:    DefaultThreshold,
		NumPerm:      DefaultNumPerm,
		FPWeight:     DefaultFPWeight,
		FNWeight:     DefaultFNWeight,
		MinimumR1:    DefaultMinimumR1,
		ExactLength:  DefaultExactLength,
		CachePath:    DefaultCachePath,
		OutputFormat: OutputFormatText,
	}
}

// ParamsResponse is the chosen parameter set and its expected error
type ParamsResponse struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	NumPerm   int     `json:"num_perm" yaml:"num_perm"`
	Amplified bool    `json:"amplified" yaml:"amplified"`

	Params lsh.Params `json:"params" yaml:"params"`
	Error  float64    `json:"error" yaml:"error"`
	FP     float64    `json:"fp" yaml:"fp"`
	FN     float64    `json:"fn" yaml:"fn"`

	// EffectiveThreshold approximates where the first banding level turns, (1/b1)^(1/r1).
	EffectiveThreshold float64 `json:"effective_threshold" yaml:"effective_threshold"`

	Enumerated int  `json:"enumerated" yaml:"enumerated"`
	Scored     int  `json:"scored" yaml:"scored"`
	Cached     bool `json:"cached" yaml:"cached"`
}

// PrecomputeRequest fills the parameter cache for a grid of configurations
type PrecomputeRequest struct {
	Thresholds []float64 `json:"thresholds" yaml:"thresholds"`
	NumPerms   []int     `json:"num_perms" yaml:"num_perms"`
	Amplified  []bool    `json:"amplified" yaml:"amplified"`
	MinimumR1  int       `json:"minimum_r1" yaml:"minimum_r1"`
	Workers    int       `json:"workers" yaml:"workers"`
	CachePath  string    `json:"cache_path" yaml:"cache_path"`

	OutputFormat OutputFormat `json:"output_format" yaml:"output_format"`
	OutputWriter io.Writer    `json:"-" yaml:"-"`
	ShowProgress bool         `json:"-" yaml:"-"`
}

// Validate validates the precompute request
func (r *PrecomputeRequest) Validate() error {
	if len(r.Thresholds) == 0 || len(r.NumPerms) == 0 {
		return NewValidationError("at least one threshold and one num_perm are required")
	}
	for _, t := range r.Thresholds {
		if !(t > 0 && t < 1) {
			return NewValidationError(fmt.Sprintf("threshold must be in (0, 1), got %v", t))
		}
	}
	for _, n := range r.NumPerms {
		if n <= 0 {
			return NewValidationError(fmt.Sprintf("num_perm must be positive, got %d", n))
		}
	}
	if r.CachePath == "" {
		return NewValidationError("a cache path is required")
	}
	if r.MinimumR1 < 1 {
		return NewValidationError(fmt.Sprintf("minimum_r1 must be >= 1, got %d", r.MinimumR1))
	}
	return nil
}

// PrecomputeResponse counts what a precompute run did
type PrecomputeResponse struct {
	Computed  int    `json:"computed" yaml:"computed"`
	Cached    int    `json:"cached" yaml:"cached"`
	Records   int    `json:"records" yaml:"records"`
	CachePath string `json:"cache_path" yaml:"cache_path"`
	Duration  int64  `json:"duration_ms" yaml:"duration_ms"`
}

// ReportRequest selects cached records to annotate
type ReportRequest struct {
	CachePath string `json:"cache_path" yaml:"cache_path"`

	// NumPerm and Threshold filter the report when non-zero.
	NumPerm   int     `json:"num_perm,omitempty" yaml:"num_perm,omitempty"`
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`

	OutputFormat OutputFormat `json:"output_format" yaml:"output_format"`
	OutputWriter io.Writer    `json:"-" yaml:"-"`
}

// ReportResponse holds the annotated cache records
type ReportResponse struct {
	CachePath string                `json:"cache_path" yaml:"cache_path"`
	Records   []optimizer.Annotated `json:"records" yaml:"records"`
}

// ParamsService resolves and maintains banding parameters
type ParamsService interface {
	// Optimize returns the parameters for one configuration, using the cache when allowed
	Optimize(ctx context.Context, req *ParamsRequest) (*ParamsResponse, error)

	// Precompute fills the cache for every combination of the request
	Precompute(ctx context.Context, req *PrecomputeRequest) (*PrecomputeResponse, error)

	// Report annotates the cached records with their error terms
	Report(ctx context.Context, req *ReportRequest) (*ReportResponse, error)
}

// ParamsOutputFormatter writes parameter results
type ParamsOutputFormatter interface {
	WriteParams(response *ParamsResponse, format OutputFormat, writer io.Writer) error
	WritePrecompute(response *PrecomputeResponse, format OutputFormat, writer io.Writer) error
	WriteReport(response *ReportResponse, format OutputFormat, writer io.Writer) error
}
