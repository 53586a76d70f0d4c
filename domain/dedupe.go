package domain

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/simdup/internal/evaluation"
	"github.com/ludo-technologies/simdup/internal/ingest"
	"github.com/ludo-technologies/simdup/internal/lsh"
)

// SketchType names a signature family.
type SketchType string

const (
	SketchMinHash SketchType = "minhash"
	SketchFill    SketchType = "fill"
)

// SortCriteria defines how candidate pairs are ordered in reports
type SortCriteria string

const (
	SortByID         SortCriteria = "id"
	SortBySimilarity SortCriteria = "similarity"
)

// ParamsSource tells where the banding parameters of a run came from.
type ParamsSource string

const (
	ParamsFromFlags     ParamsSource = "explicit"
	ParamsFromCache     ParamsSource = "cache"
	ParamsFromOptimizer ParamsSource = "optimizer"
)

// DedupeRequest represents a request for candidate pair generation
type DedupeRequest struct {
	// Input parameters
	Paths           []string `json:"paths" yaml:"paths"`
	IncludePatterns []string `json:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns" yaml:"exclude_patterns"`

	// Sketch configuration
	SketchType SketchType `json:"sketch_type" yaml:"sketch_type"`
	NumPerm    int        `json:"num_perm" yaml:"num_perm"`
	MasterSeed uint64     `json:"master_seed" yaml:"master_seed"`

	// Banding configuration. Bands and Rows, when both set, bypass the optimizer.
	Threshold   float64 `json:"threshold" yaml:"threshold"`
	Amplified   bool    `json:"amplified" yaml:"amplified"`
	MinimumR1   int     `json:"minimum_r1" yaml:"minimum_r1"`
	Bands       int     `json:"bands,omitempty" yaml:"bands,omitempty"`
	Rows        int     `json:"rows,omitempty" yaml:"rows,omitempty"`
	FPWeight    float64 `json:"fp_weight" yaml:"fp_weight"`
	FNWeight    float64 `json:"fn_weight" yaml:"fn_weight"`
	ExactLength bool    `json:"exact_length" yaml:"exact_length"`

	// Parameter cache
	CachePath string `json:"cache_path" yaml:"cache_path"`
	NoCache   bool   `json:"no_cache" yaml:"no_cache"`

	// Execution
	Workers          int  `json:"workers" yaml:"workers"`
	OptimizerWorkers int  `json:"optimizer_workers" yaml:"optimizer_workers"`
	ShowProgress     bool `json:"-" yaml:"-"`

	// Output configuration
	OutputFormat  OutputFormat `json:"output_format" yaml:"output_format"`
	OutputWriter  io.Writer    `json:"-" yaml:"-"`
	OutputPath    string       `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	SortBy        SortCriteria `json:"sort_by" yaml:"sort_by"`
	MinSimilarity float64      `json:"min_similarity" yaml:"min_similarity"`
	MetricsPath   string       `json:"metrics_path,omitempty" yaml:"metrics_path,omitempty"`

	// Configuration file
	ConfigPath string `json:"config_path,omitempty" yaml:"config_path,omitempty"`

	// ExplicitFlags records which CLI flags the user set.
	ExplicitFlags map[string]bool `json:"-" yaml:"-"`
}

// HasExplicitBanding reports whether bands and rows were given directly.
func (r *DedupeRequest) HasExplicitBanding() bool {
	return r.Bands > 0 && r.Rows > 0
}

// Validate validates the dedupe request
func (r *DedupeRequest) Validate() error {
	if len(r.Paths) == 0 {
		return NewValidationError("no input paths specified")
	}
	switch r.SketchType {
	case SketchMinHash, SketchFill:
	default:
		return NewValidationError(fmt.Sprintf("unknown sketch type %q, must be minhash or fill", r.SketchType))
	}
	if r.NumPerm <= 0 {
		return NewValidationError(fmt.Sprintf("num_perm must be positive, got %d", r.NumPerm))
	}
	if r.HasExplicitBanding() {
		if r.Bands*r.Rows != r.NumPerm {
			return NewParamsMismatchError(
				fmt.Sprintf("bands (%d) x rows (%d) must equal num_perm (%d)", r.Bands, r.Rows, r.NumPerm), nil)
		}
	} else {
		if r.Bands < 0 || r.Rows < 0 {
			return NewValidationError("bands and rows must not be negative")
		}
		if r.Bands > 0 || r.Rows > 0 {
			return NewValidationError("bands and rows must be given together")
		}
		if !(r.Threshold > 0 && r.Threshold < 1) {
			return NewValidationError(fmt.Sprintf("threshold must be in (0, 1), got %v", r.Threshold))
		}
	}
	if r.MinimumR1 < 1 {
		return NewValidationError(fmt.Sprintf("minimum_r1 must be >= 1, got %d", r.MinimumR1))
	}
	if r.FPWeight < 0 || r.FNWeight < 0 {
		return NewValidationError("fp_weight and fn_weight must not be negative")
	}
	if r.MinSimilarity < 0 || r.MinSimilarity > 1 {
		return NewValidationError(fmt.Sprintf("min_similarity must be in [0, 1], got %v", r.MinSimilarity))
	}
	if r.Workers < 0 || r.OptimizerWorkers < 0 {
		return NewValidationError("workers must not be negative")
	}
	switch r.SortBy {
	case SortByID, SortBySimilarity, "":
	default:
		return NewValidationError(fmt.Sprintf("unknown sort criteria %q", r.SortBy))
	}
	return nil
}

// DefaultDedupeRequest returns a request carrying the defaults
func DefaultDedupeRequest() *DedupeRequest {
	return &DedupeRequest{
		IncludePatterns: append([]string(nil), DefaultIncludePatterns...),
		ExcludePatterns: []string{},
		SketchType:      DefaultSketchType,
		NumPerm:         DefaultNumPerm,
		MasterSeed:      DefaultMasterSeed,
		Threshold:       DefaultThreshold,
		MinimumR1:       DefaultMinimumR1,
		FPWeight:        DefaultFPWeight,
		FNWeight:        DefaultFNWeight,
		ExactLength:     DefaultExactLength,
		CachePath:       DefaultCachePath,
		OutputFormat:    OutputFormatText,
		SortBy:          SortByID,
	}
}

// CandidatePair is a pair of item ids that shared a bucket.
type CandidatePair struct {
	A          string  `json:"a" yaml:"a" csv:"a"`
	B          string  `json:"b" yaml:"b" csv:"b"`
	Similarity float64 `json:"similarity" yaml:"similarity" csv:"similarity"`

	// Duplicate is set when both items carry the same group label.
	Duplicate bool `json:"duplicate,omitempty" yaml:"duplicate,omitempty" csv:"duplicate"`
}

// ItemFailure is a record that could not be turned into an item.
type ItemFailure struct {
	Source string `json:"source" yaml:"source"`
	Index  int    `json:"index" yaml:"index"`
	Error  string `json:"error" yaml:"error"`
}

// DedupeStatistics summarises a run.
type DedupeStatistics struct {
	Files          int          `json:"files" yaml:"files"`
	Records        int          `json:"records" yaml:"records"`
	Items          int          `json:"items" yaml:"items"`
	Failures       int          `json:"failures" yaml:"failures"`
	EmptyItems     int          `json:"empty_items" yaml:"empty_items"`
	SketchType     SketchType   `json:"sketch_type" yaml:"sketch_type"`
	NumPerm        int          `json:"num_perm" yaml:"num_perm"`
	Params         lsh.Params   `json:"params" yaml:"params"`
	ParamsSource   ParamsSource `json:"params_source" yaml:"params_source"`
	Threshold      float64      `json:"threshold" yaml:"threshold"`
	ExpectedFP     float64      `json:"expected_fp" yaml:"expected_fp"`
	ExpectedFN     float64      `json:"expected_fn" yaml:"expected_fn"`
	Buckets        int          `json:"buckets" yaml:"buckets"`
	MaxBucketSize  int          `json:"max_bucket_size" yaml:"max_bucket_size"`
	CandidatePairs int          `json:"candidate_pairs" yaml:"candidate_pairs"`
	ReportedPairs  int          `json:"reported_pairs" yaml:"reported_pairs"`
}

// DedupeResponse represents the result of a dedupe run
type DedupeResponse struct {
	Pairs      []CandidatePair    `json:"pairs" yaml:"pairs"`
	Failures   []ItemFailure      `json:"failures,omitempty" yaml:"failures,omitempty"`
	Statistics *DedupeStatistics  `json:"statistics" yaml:"statistics"`
	Evaluation *evaluation.Report `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`

	Duration    int64  `json:"duration_ms" yaml:"duration_ms"`
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
}

// RecordReader locates and decodes record files
type RecordReader interface {
	// CollectRecordFiles expands paths into record files using include and exclude globs
	CollectRecordFiles(paths, includePatterns, excludePatterns []string) ([]string, error)

	// ReadRecords decodes every record of the given files
	ReadRecords(ctx context.Context, files []string) ([]ingest.Result, error)
}

// DedupeService generates candidate pairs for decoded records
type DedupeService interface {
	Dedupe(ctx context.Context, req *DedupeRequest, records []ingest.Result) (*DedupeResponse, error)
}

// DedupeOutputFormatter writes dedupe results
type DedupeOutputFormatter interface {
	Write(response *DedupeResponse, format OutputFormat, writer io.Writer) error
}

// DedupeConfigurationLoader loads dedupe defaults from configuration files
type DedupeConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*DedupeRequest, error)

	// LoadDefaultConfig loads the discovered or built-in configuration
	LoadDefaultConfig() *DedupeRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *DedupeRequest, override *DedupeRequest) *DedupeRequest
}
