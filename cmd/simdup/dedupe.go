package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simdup/app"
	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/service"
)

// DedupeCommand represents the dedupe command
type DedupeCommand struct {
	sketch    string
	numPerm   int
	seed      uint64
	threshold float64
	amplified bool
	minimumR1 int
	bands     int
	rows      int
	fpWeight  float64
	fnWeight  float64

	exactLength bool
	cachePath   string
	noCache     bool
	workers     int

	json          bool
	yaml          bool
	csv           bool
	outputPath    string
	sortBy        string
	minSimilarity float64
	metricsPath   string
	showProgress  bool

	includePatterns []string
	excludePatterns []string
	configPath      string
}

// NewDedupeCommand creates a new dedupe command with the built-in defaults
func NewDedupeCommand() *DedupeCommand {
	return &DedupeCommand{
		sketch:          string(domain.DefaultSketchType),
		numPerm:         domain.DefaultNumPerm,
		seed:            domain.DefaultMasterSeed,
		threshold:       domain.DefaultThreshold,
		minimumR1:       domain.DefaultMinimumR1,
		fpWeight:        domain.DefaultFPWeight,
		fnWeight:        domain.DefaultFNWeight,
		exactLength:     domain.DefaultExactLength,
		cachePath:       domain.DefaultCachePath,
		sortBy:          string(domain.SortByID),
		includePatterns: domain.DefaultIncludePatterns,
	}
}

// CreateCobraCommand creates the cobra command for near-duplicate detection
func (c *DedupeCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe [paths...]",
		Short: "Find near-duplicate records",
		Long: `Find candidate pairs of near-duplicate records.

Record files are JSON arrays, or objects with an "items" array, whose entries
carry an "id", a "tokens" array (or "text" to tokenize) and an optional
"group" label. When group labels are present the candidates are scored
against them.

Band parameters come from --bands/--rows when both are given, otherwise from
the parameter cache, otherwise from the optimizer.

Examples:
  simdup dedupe data/
  simdup dedupe --threshold 0.8 --amplified data/
  simdup dedupe --sketch fill --num-perm 256 data/items.json
  simdup dedupe --bands 32 --rows 4 --json data/
  simdup dedupe --csv --output pairs.csv --sort similarity data/`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runDedupe,
	}

	f := cmd.Flags()
	f.StringVar(&c.sketch, "sketch", c.sketch, "Signature family (minhash|fill)")
	f.IntVar(&c.numPerm, "num-perm", c.numPerm, "Signature length")
	f.Uint64Var(&c.seed, "seed", c.seed, "Master seed for the hash functions")

	f.Float64Var(&c.threshold, "threshold", c.threshold, "Jaccard similarity threshold the banding is tuned for")
	f.BoolVar(&c.amplified, "amplified", false, "Use two-level (amplified) banding")
	f.IntVar(&c.minimumR1, "minimum-r1", c.minimumR1, "Smallest rows per band the optimizer may choose")
	f.IntVar(&c.bands, "bands", 0, "Number of bands; skips the optimizer together with --rows")
	f.IntVar(&c.rows, "rows", 0, "Rows per band; skips the optimizer together with --bands")
	f.Float64Var(&c.fpWeight, "fp-weight", c.fpWeight, "Weight of the false positive area")
	f.Float64Var(&c.fnWeight, "fn-weight", c.fnWeight, "Weight of the false negative area")
	f.BoolVar(&c.exactLength, "exact-length", c.exactLength, "Only use parameters that consume every signature slot")

	f.StringVar(&c.cachePath, "cache", c.cachePath, "Parameter cache file")
	f.BoolVar(&c.noCache, "no-cache", false, "Neither read nor write the parameter cache")
	f.IntVar(&c.workers, "workers", 0, "Parallel signers (0 = all CPUs)")

	f.BoolVar(&c.json, "json", false, "Output as JSON")
	f.BoolVar(&c.yaml, "yaml", false, "Output as YAML")
	f.BoolVar(&c.csv, "csv", false, "Output candidate pairs as CSV")
	f.StringVarP(&c.outputPath, "output", "o", "", "Write the report to a file")
	f.StringVar(&c.sortBy, "sort", c.sortBy, "Sort candidate pairs (id|similarity)")
	f.Float64Var(&c.minSimilarity, "min-similarity", 0, "Drop pairs with a lower estimated similarity")
	f.StringVar(&c.metricsPath, "metrics", "", "Write Prometheus metrics of the run to a file")
	f.BoolVar(&c.showProgress, "progress", false, "Show progress bars")

	f.StringSliceVar(&c.includePatterns, "include", c.includePatterns, "Include file patterns")
	f.StringSliceVar(&c.excludePatterns, "exclude", []string{}, "Exclude file patterns")
	f.StringVarP(&c.configPath, "config", "c", "", "Configuration file path")

	return cmd
}

// buildRequest converts flags and arguments into a request
func (c *DedupeCommand) buildRequest(cmd *cobra.Command, args []string) (domain.DedupeRequest, error) {
	format, err := outputFormat(c.json, c.csv, c.yaml)
	if err != nil {
		return domain.DedupeRequest{}, err
	}
	return domain.DedupeRequest{
		Paths:           args,
		IncludePatterns: c.includePatterns,
		ExcludePatterns: c.excludePatterns,
		SketchType:      domain.SketchType(c.sketch),
		NumPerm:         c.numPerm,
		MasterSeed:      c.seed,
		Threshold:       c.threshold,
		Amplified:       c.amplified,
		MinimumR1:       c.minimumR1,
		Bands:           c.bands,
		Rows:            c.rows,
		FPWeight:        c.fpWeight,
		FNWeight:        c.fnWeight,
		ExactLength:     c.exactLength,
		CachePath:       c.cachePath,
		NoCache:         c.noCache,
		Workers:         c.workers,
		ShowProgress:    c.showProgress,
		OutputFormat:    format,
		OutputWriter:    cmd.OutOrStdout(),
		OutputPath:      c.outputPath,
		SortBy:          domain.SortCriteria(c.sortBy),
		MinSimilarity:   c.minSimilarity,
		MetricsPath:     c.metricsPath,
		ConfigPath:      c.configPath,
		ExplicitFlags:   GetExplicitFlags(cmd),
	}, nil
}

// runDedupe executes the dedupe command
func (c *DedupeCommand) runDedupe(cmd *cobra.Command, args []string) error {
	request, err := c.buildRequest(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	progress := newProgress(c.showProgress)
	if progress != nil {
		defer progress.Close()
	}
	metrics := service.NewMetrics()

	paramsService := service.NewParamsService(logger,
		service.WithParamsMetrics(metrics),
		service.WithParamsProgress(progress),
	)
	dedupeUseCase, err := app.NewDedupeUseCaseBuilder().
		WithService(service.NewDedupeService(logger, paramsService, metrics, progress)).
		WithRecordReader(service.NewRecordReader(logger)).
		WithFormatter(service.NewDedupeFormatter()).
		WithConfigLoader(service.NewConfigurationLoader()).
		WithOutputWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		WithMetrics(metrics).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create dedupe use case: %w", err)
	}

	return dedupeUseCase.Execute(cmd.Context(), request)
}

// NewDedupeCmd creates and returns the dedupe cobra command
func NewDedupeCmd() *cobra.Command {
	return NewDedupeCommand().CreateCobraCommand()
}
