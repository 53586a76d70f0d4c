package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/simdup/app"
	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/config"
	"github.com/ludo-technologies/simdup/internal/lsh"
	"github.com/ludo-technologies/simdup/internal/optimizer"
	"github.com/ludo-technologies/simdup/service"
)

// NewParamsCmd creates the params command group
func NewParamsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Choose, precompute and inspect LSH band parameters",
		Long: `Band parameters trade false positives against false negatives around
a similarity threshold. These commands run the optimizer, fill the parameter
cache ahead of time and report on its contents.`,
	}
	cmd.AddCommand(NewOptimizeCommand().CreateCobraCommand())
	cmd.AddCommand(NewPrecomputeCommand().CreateCobraCommand())
	cmd.AddCommand(NewReportCommand().CreateCobraCommand())
	cmd.AddCommand(NewThresholdCommand().CreateCobraCommand())
	return cmd
}

func newParamsUseCase(cmd *cobra.Command, showProgress bool) *app.ParamsUseCase {
	logger := newLogger(cmd)
	svc := service.NewParamsService(logger, service.WithParamsProgress(newProgress(showProgress)))
	return app.NewParamsUseCase(svc, service.NewParamsFormatter()).
		WithOutputWriter(service.NewFileOutputWriter(cmd.ErrOrStderr()))
}

// OptimizeCommand represents the params optimize command
type OptimizeCommand struct {
	threshold   float64
	numPerm     int
	amplified   bool
	minimumR1   int
	fpWeight    float64
	fnWeight    float64
	exactLength bool
	workers     int
	cachePath   string
	noCache     bool

	json         bool
	yaml         bool
	csv          bool
	outputPath   string
	configPath   string
	showProgress bool
}

// NewOptimizeCommand creates a new optimize command
func NewOptimizeCommand() *OptimizeCommand {
	return &OptimizeCommand{
		threshold:   domain.DefaultThreshold,
		numPerm:     domain.DefaultNumPerm,
		minimumR1:   domain.DefaultMinimumR1,
		fpWeight:    domain.DefaultFPWeight,
		fnWeight:    domain.DefaultFNWeight,
		exactLength: domain.DefaultExactLength,
		cachePath:   domain.DefaultCachePath,
	}
}

// CreateCobraCommand creates the cobra command
func (c *OptimizeCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Find the band parameters for one threshold and signature length",
		Long: `Find the band parameters minimising the weighted false positive and
false negative areas for a threshold and signature length.

Results are read from and written to the parameter cache unless --no-cache
is given.

Examples:
  simdup params optimize --threshold 0.8
  simdup params optimize --threshold 0.5 --num-perm 256 --amplified
  simdup params optimize --threshold 0.7 --fp-weight 0.2 --fn-weight 0.8 --no-cache`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	f := cmd.Flags()
	f.Float64Var(&c.threshold, "threshold", c.threshold, "Jaccard similarity threshold")
	f.IntVar(&c.numPerm, "num-perm", c.numPerm, "Signature length")
	f.BoolVar(&c.amplified, "amplified", false, "Search two-level banding parameters")
	f.IntVar(&c.minimumR1, "minimum-r1", c.minimumR1, "Smallest rows per band")
	f.Float64Var(&c.fpWeight, "fp-weight", c.fpWeight, "Weight of the false positive area")
	f.Float64Var(&c.fnWeight, "fn-weight", c.fnWeight, "Weight of the false negative area")
	f.BoolVar(&c.exactLength, "exact-length", c.exactLength, "Only use parameters that consume every signature slot")
	f.IntVar(&c.workers, "workers", 0, "Parallel searches (0 = all CPUs)")
	f.StringVar(&c.cachePath, "cache", c.cachePath, "Parameter cache file")
	f.BoolVar(&c.noCache, "no-cache", false, "Neither read nor write the parameter cache")
	f.BoolVar(&c.json, "json", false, "Output as JSON")
	f.BoolVar(&c.yaml, "yaml", false, "Output as YAML")
	f.BoolVar(&c.csv, "csv", false, "Output as CSV")
	f.StringVarP(&c.outputPath, "output", "o", "", "Write the result to a file")
	f.StringVarP(&c.configPath, "config", "c", "", "Configuration file path")
	f.BoolVar(&c.showProgress, "progress", false, "Show a progress bar")
	return cmd
}

// buildRequest starts from the configuration and applies explicit flags
func (c *OptimizeCommand) buildRequest(cmd *cobra.Command) (domain.ParamsRequest, error) {
	format, err := outputFormat(c.json, c.csv, c.yaml)
	if err != nil {
		return domain.ParamsRequest{}, err
	}
	base, err := service.NewConfigurationLoader().LoadParamsConfig(c.configPath)
	if err != nil {
		return domain.ParamsRequest{}, err
	}

	flags := GetExplicitFlags(cmd)
	req := *base
	req.Threshold = config.MergeFloat64(base.Threshold, c.threshold, "threshold", flags)
	req.NumPerm = config.MergeInt(base.NumPerm, c.numPerm, "num-perm", flags)
	req.Amplified = config.MergeBool(base.Amplified, c.amplified, "amplified", flags)
	req.MinimumR1 = config.MergeInt(base.MinimumR1, c.minimumR1, "minimum-r1", flags)
	req.FPWeight = config.MergeFloat64(base.FPWeight, c.fpWeight, "fp-weight", flags)
	req.FNWeight = config.MergeFloat64(base.FNWeight, c.fnWeight, "fn-weight", flags)
	req.ExactLength = config.MergeBool(base.ExactLength, c.exactLength, "exact-length", flags)
	req.Workers = config.MergeInt(base.Workers, c.workers, "workers", flags)
	req.CachePath = config.MergeString(base.CachePath, c.cachePath, "cache", flags)
	req.NoCache = c.noCache
	if format != "" {
		req.OutputFormat = format
	}
	req.OutputWriter = cmd.OutOrStdout()
	req.OutputPath = c.outputPath
	req.ShowProgress = c.showProgress
	return req, nil
}

func (c *OptimizeCommand) run(cmd *cobra.Command, args []string) error {
	req, err := c.buildRequest(cmd)
	if err != nil {
		return err
	}
	return newParamsUseCase(cmd, c.showProgress).Optimize(cmd.Context(), req)
}

// PrecomputeCommand represents the params precompute command
type PrecomputeCommand struct {
	thresholds   string
	numPerms     []int
	mode         string
	minimumR1    int
	workers      int
	cachePath    string
	json         bool
	yaml         bool
	showProgress bool
}

// NewPrecomputeCommand creates a new precompute command
func NewPrecomputeCommand() *PrecomputeCommand {
	return &PrecomputeCommand{
		thresholds: "0.05:0.95:0.05",
		numPerms:   []int{domain.DefaultNumPerm},
		mode:       "both",
		minimumR1:  domain.DefaultMinimumR1,
		cachePath:  domain.DefaultCachePath,
	}
}

// CreateCobraCommand creates the cobra command
func (c *PrecomputeCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precompute",
		Short: "Fill the parameter cache for a grid of thresholds",
		Long: `Run the optimizer for every combination of threshold, signature length
and banding mode, and store the results in the parameter cache. Entries
already present are kept. The cache is written once at the end, and also when
the run is interrupted.

Thresholds are a comma separated list or an inclusive start:stop:step range.

Examples:
  simdup params precompute
  simdup params precompute --thresholds 0.5,0.7,0.9 --num-perms 128,256
  simdup params precompute --thresholds 0.1:0.9:0.1 --mode standard`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	f := cmd.Flags()
	f.StringVar(&c.thresholds, "thresholds", c.thresholds, "Thresholds as a list or start:stop:step")
	f.IntSliceVar(&c.numPerms, "num-perms", c.numPerms, "Signature lengths")
	f.StringVar(&c.mode, "mode", c.mode, "Banding modes to compute (standard|amplified|both)")
	f.IntVar(&c.minimumR1, "minimum-r1", c.minimumR1, "Smallest rows per band")
	f.IntVar(&c.workers, "workers", 0, "Parallel searches (0 = all CPUs)")
	f.StringVar(&c.cachePath, "cache", c.cachePath, "Parameter cache file")
	f.BoolVar(&c.json, "json", false, "Output the summary as JSON")
	f.BoolVar(&c.yaml, "yaml", false, "Output the summary as YAML")
	f.BoolVar(&c.showProgress, "progress", false, "Show a progress bar")
	return cmd
}

func (c *PrecomputeCommand) run(cmd *cobra.Command, args []string) error {
	thresholds, err := parseThresholds(c.thresholds)
	if err != nil {
		return domain.NewInvalidInputError("invalid --thresholds", err)
	}
	amplified, err := parseMode(c.mode)
	if err != nil {
		return domain.NewInvalidInputError("invalid --mode", err)
	}
	format, err := outputFormat(c.json, false, c.yaml)
	if err != nil {
		return err
	}

	req := domain.PrecomputeRequest{
		Thresholds:   thresholds,
		NumPerms:     c.numPerms,
		Amplified:    amplified,
		MinimumR1:    c.minimumR1,
		Workers:      c.workers,
		CachePath:    c.cachePath,
		OutputFormat: format,
		OutputWriter: cmd.OutOrStdout(),
		ShowProgress: c.showProgress,
	}
	return newParamsUseCase(cmd, c.showProgress).Precompute(cmd.Context(), req)
}

// parseThresholds accepts "0.5,0.7" or an inclusive "start:stop:step" range.
// Values are rounded to two decimals.
func parseThresholds(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("no thresholds given")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("range %q must be start:stop:step", s)
		}
		var v [3]float64
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		start, stop, step := v[0], v[1], v[2]
		if step <= 0 || stop < start {
			return nil, fmt.Errorf("range %q is empty", s)
		}
		n := int(math.Floor((stop-start)/step+1e-9)) + 1
		out := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, optimizer.RoundThreshold(start+float64(i)*step))
		}
		return out, nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, optimizer.RoundThreshold(f))
	}
	return out, nil
}

func parseMode(mode string) ([]bool, error) {
	switch mode {
	case "standard":
		return []bool{false}, nil
	case "amplified":
		return []bool{true}, nil
	case "both", "":
		return []bool{false, true}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q, must be standard, amplified or both", mode)
	}
}

// ReportCommand represents the params report command
type ReportCommand struct {
	cachePath string
	numPerm   int
	threshold float64
	json      bool
	yaml      bool
	csv       bool
}

// NewReportCommand creates a new report command
func NewReportCommand() *ReportCommand {
	return &ReportCommand{cachePath: domain.DefaultCachePath}
}

// CreateCobraCommand creates the cobra command
func (c *ReportCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the cached parameters with their error terms",
		Long: `List the parameter cache with the false positive and false negative
areas of every entry, computed with equal weights, and how much the error
changed against the previous entry for the same threshold and signature
length.

Examples:
  simdup params report
  simdup params report --num-perm 128 --threshold 0.8
  simdup params report --csv > report.csv`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}

	f := cmd.Flags()
	f.StringVar(&c.cachePath, "cache", c.cachePath, "Parameter cache file")
	f.IntVar(&c.numPerm, "num-perm", 0, "Only show this signature length")
	f.Float64Var(&c.threshold, "threshold", 0, "Only show this threshold")
	f.BoolVar(&c.json, "json", false, "Output as JSON")
	f.BoolVar(&c.yaml, "yaml", false, "Output as YAML")
	f.BoolVar(&c.csv, "csv", false, "Output as CSV")
	return cmd
}

func (c *ReportCommand) run(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(c.json, c.csv, c.yaml)
	if err != nil {
		return err
	}
	req := domain.ReportRequest{
		CachePath:    c.cachePath,
		NumPerm:      c.numPerm,
		Threshold:    c.threshold,
		OutputFormat: format,
		OutputWriter: cmd.OutOrStdout(),
	}
	return newParamsUseCase(cmd, false).Report(cmd.Context(), req)
}

// ThresholdCommand represents the params threshold command
type ThresholdCommand struct {
	bands int
	rows  int
}

// NewThresholdCommand creates a new threshold command
func NewThresholdCommand() *ThresholdCommand {
	return &ThresholdCommand{}
}

// CreateCobraCommand creates the cobra command
func (c *ThresholdCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Show where the collision curve of b bands of r rows turns",
		Long: `Print the similarity at which the collision curve of standard banding
is steepest, ((r-1)/(r*b-1))^(1/r), next to the common approximation
(1/b)^(1/r).

Example:
  simdup params threshold --bands 32 --rows 4`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	cmd.Flags().IntVar(&c.bands, "bands", 0, "Number of bands")
	cmd.Flags().IntVar(&c.rows, "rows", 0, "Rows per band")
	_ = cmd.MarkFlagRequired("bands")
	_ = cmd.MarkFlagRequired("rows")
	return cmd
}

func (c *ThresholdCommand) run(cmd *cobra.Command, args []string) error {
	if c.bands <= 0 || c.rows <= 0 {
		return domain.NewValidationError("--bands and --rows must be positive")
	}
	p := lsh.Standard(c.bands, c.rows)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Params: %s\n", p)
	fmt.Fprintf(out, "Steepest point: %.4f\n", optimizer.ThresholdComp(c.rows, c.bands))
	fmt.Fprintf(out, "Approximation: %.4f\n", p.Threshold())
	return nil
}
