package service

import (
	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/config"
)

// ConfigurationLoaderImpl implements the DedupeConfigurationLoader interface
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from the specified path. An empty path
// discovers .simdup.toml from the working directory upward.
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.DedupeRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}
	req := DedupeRequestFromConfig(cfg)
	req.ConfigPath = path
	return req, nil
}

// LoadDefaultConfig loads the discovered configuration, falling back to
// the built-in defaults when it cannot be read.
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.DedupeRequest {
	if req, err := c.LoadConfig(""); err == nil {
		return req
	}
	return DedupeRequestFromConfig(config.DefaultConfig())
}

// LoadParamsConfig loads the parameter search defaults from the same sources as LoadConfig.
func (c *ConfigurationLoaderImpl) LoadParamsConfig(path string) (*domain.ParamsRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration", err)
	}
	return ParamsRequestFromConfig(cfg), nil
}

// MergeConfig merges CLI flags with configuration file. Values from
// override are only taken when their flag was explicitly set.
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.DedupeRequest, override *domain.DedupeRequest) *domain.DedupeRequest {
	merged := *base
	flags := override.ExplicitFlags

	// Always override paths as they come from command arguments
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}

	merged.IncludePatterns = config.MergeStringSlice(base.IncludePatterns, override.IncludePatterns, "include", flags)
	merged.ExcludePatterns = config.MergeStringSlice(base.ExcludePatterns, override.ExcludePatterns, "exclude", flags)

	merged.SketchType = domain.SketchType(config.MergeString(string(base.SketchType), string(override.SketchType), "sketch", flags))
	merged.NumPerm = config.MergeInt(base.NumPerm, override.NumPerm, "num-perm", flags)
	merged.MasterSeed = config.MergeUint64(base.MasterSeed, override.MasterSeed, "seed", flags)

	merged.Threshold = config.MergeFloat64(base.Threshold, override.Threshold, "threshold", flags)
	merged.Amplified = config.MergeBool(base.Amplified, override.Amplified, "amplified", flags)
	merged.MinimumR1 = config.MergeInt(base.MinimumR1, override.MinimumR1, "minimum-r1", flags)
	merged.FPWeight = config.MergeFloat64(base.FPWeight, override.FPWeight, "fp-weight", flags)
	merged.FNWeight = config.MergeFloat64(base.FNWeight, override.FNWeight, "fn-weight", flags)
	merged.ExactLength = config.MergeBool(base.ExactLength, override.ExactLength, "exact-length", flags)

	// Explicit banding replaces the configured pair as a whole
	if config.WasExplicitlySet(flags, "bands") || config.WasExplicitlySet(flags, "rows") {
		merged.Bands, merged.Rows = override.Bands, override.Rows
	}

	merged.CachePath = config.MergeString(base.CachePath, override.CachePath, "cache", flags)
	merged.NoCache = config.MergeBool(base.NoCache, override.NoCache, "no-cache", flags)
	merged.Workers = config.MergeInt(base.Workers, override.Workers, "workers", flags)

	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	merged.OutputPath = config.MergeString(base.OutputPath, override.OutputPath, "output", flags)
	merged.SortBy = domain.SortCriteria(config.MergeString(string(base.SortBy), string(override.SortBy), "sort", flags))
	merged.MinSimilarity = config.MergeFloat64(base.MinSimilarity, override.MinSimilarity, "min-similarity", flags)
	merged.MetricsPath = config.MergeString(base.MetricsPath, override.MetricsPath, "metrics", flags)
	merged.ShowProgress = override.ShowProgress

	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}
	merged.ExplicitFlags = flags
	return &merged
}

// DedupeRequestFromConfig converts a loaded configuration into a request
func DedupeRequestFromConfig(cfg *config.Config) *domain.DedupeRequest {
	return &domain.DedupeRequest{
		IncludePatterns:  cfg.Input.IncludePatterns,
		ExcludePatterns:  cfg.Input.ExcludePatterns,
		SketchType:       domain.SketchType(cfg.Sketch.Type),
		NumPerm:          cfg.Sketch.NumPerm,
		MasterSeed:       cfg.Sketch.MasterSeed,
		Threshold:        cfg.LSH.Threshold,
		Amplified:        cfg.LSH.Amplified,
		MinimumR1:        cfg.LSH.MinimumR1,
		Bands:            cfg.LSH.Bands,
		Rows:             cfg.LSH.Rows,
		FPWeight:         cfg.LSH.FPWeight,
		FNWeight:         cfg.LSH.FNWeight,
		ExactLength:      cfg.Optimizer.ExactLength,
		CachePath:        cfg.Optimizer.CachePath,
		Workers:          cfg.Performance.Workers,
		OptimizerWorkers: cfg.Optimizer.Workers,
		OutputFormat:     domain.OutputFormat(cfg.Output.Format),
		SortBy:           domain.SortCriteria(cfg.Output.SortBy),
		MinSimilarity:    cfg.Output.MinSimilarity,
	}
}

// ParamsRequestFromConfig converts a loaded configuration into a parameter request
func ParamsRequestFromConfig(cfg *config.Config) *domain.ParamsRequest {
	return &domain.ParamsRequest{
		Threshold:    cfg.LSH.Threshold,
		NumPerm:      cfg.Sketch.NumPerm,
		FPWeight:     cfg.LSH.FPWeight,
		FNWeight:     cfg.LSH.FNWeight,
		Amplified:    cfg.LSH.Amplified,
		MinimumR1:    cfg.LSH.MinimumR1,
		ExactLength:  cfg.Optimizer.ExactLength,
		Workers:      cfg.Optimizer.Workers,
		CachePath:    cfg.Optimizer.CachePath,
		OutputFormat: domain.OutputFormat(cfg.Output.Format),
	}
}
