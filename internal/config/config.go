package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/simdup/domain"
)

// ConfigFileName is the project configuration discovered from the working directory upward.
const ConfigFileName = ".simdup.toml"

// EnvPrefix prefixes environment overrides, e.g. SIMDUP_LSH_THRESHOLD.
const EnvPrefix = "SIMDUP"

// Config represents the main configuration structure
type Config struct {
	// Sketch selects the signature family and its seeds
	Sketch SketchConfig `mapstructure:"sketch" toml:"sketch" yaml:"sketch"`

	// LSH holds the banding configuration
	LSH LSHConfig `mapstructure:"lsh" toml:"lsh" yaml:"lsh"`

	// Optimizer holds the parameter search configuration
	Optimizer OptimizerConfig `mapstructure:"optimizer" toml:"optimizer" yaml:"optimizer"`

	// Input holds record file selection
	Input InputConfig `mapstructure:"input" toml:"input" yaml:"input"`

	// Output holds output formatting configuration
	Output OutputConfig `mapstructure:"output" toml:"output" yaml:"output"`

	// Performance holds concurrency limits
	Performance PerformanceConfig `mapstructure:"performance" toml:"performance" yaml:"performance"`
}

// SketchConfig is the [sketch] section
type SketchConfig struct {
	Type       string `mapstructure:"type" toml:"type" yaml:"type"`
	NumPerm    int    `mapstructure:"num_perm" toml:"num_perm" yaml:"num_perm"`
	MasterSeed uint64 `mapstructure:"master_seed" toml:"master_seed" yaml:"master_seed"`
}

// LSHConfig is the [lsh] section. Bands and Rows, when both set, replace the optimizer.
type LSHConfig struct {
	Threshold float64 `mapstructure:"threshold" toml:"threshold" yaml:"threshold"`
	Amplified bool    `mapstructure:"amplified" toml:"amplified" yaml:"amplified"`
	MinimumR1 int     `mapstructure:"minimum_r1" toml:"minimum_r1" yaml:"minimum_r1"`
	Bands     int     `mapstructure:"bands" toml:"bands" yaml:"bands"`
	Rows      int     `mapstructure:"rows" toml:"rows" yaml:"rows"`
	FPWeight  float64 `mapstructure:"fp_weight" toml:"fp_weight" yaml:"fp_weight"`
	FNWeight  float64 `mapstructure:"fn_weight" toml:"fn_weight" yaml:"fn_weight"`
}

// OptimizerConfig is the [optimizer] section
type OptimizerConfig struct {
	CachePath   string `mapstructure:"cache_path" toml:"cache_path" yaml:"cache_path"`
	ExactLength bool   `mapstructure:"exact_length" toml:"exact_length" yaml:"exact_length"`
	Workers     int    `mapstructure:"workers" toml:"workers" yaml:"workers"`
}

// InputConfig is the [input] section
type InputConfig struct {
	IncludePatterns []string `mapstructure:"include_patterns" toml:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns" toml:"exclude_patterns" yaml:"exclude_patterns"`
}

// OutputConfig is the [output] section
type OutputConfig struct {
	Format        string  `mapstructure:"format" toml:"format" yaml:"format"`
	SortBy        string  `mapstructure:"sort_by" toml:"sort_by" yaml:"sort_by"`
	MinSimilarity float64 `mapstructure:"min_similarity" toml:"min_similarity" yaml:"min_similarity"`
}

// PerformanceConfig is the [performance] section
type PerformanceConfig struct {
	// Workers bounds parallel signature construction; 0 means GOMAXPROCS
	Workers int `mapstructure:"workers" toml:"workers" yaml:"workers"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sketch: SketchConfig{
			Type:       domain.DefaultSketchType,
			NumPerm:    domain.DefaultNumPerm,
			MasterSeed: domain.DefaultMasterSeed,
		},
		LSH: LSHConfig{
			Threshold: domain.DefaultThreshold,
			MinimumR1: domain.DefaultMinimumR1,
			FPWeight:  domain.DefaultFPWeight,
			FNWeight:  domain.DefaultFNWeight,
		},
		Optimizer: OptimizerConfig{
			CachePath:   domain.DefaultCachePath,
			ExactLength: domain.DefaultExactLength,
		},
		Input: InputConfig{
			IncludePatterns: append([]string(nil), domain.DefaultIncludePatterns...),
			ExcludePatterns: []string{},
		},
		Output: OutputConfig{
			Format: string(domain.OutputFormatText),
			SortBy: string(domain.SortByID),
		},
	}
}

// LoadConfig loads configuration with this priority:
//  1. SIMDUP_* environment variables
//  2. the file at configPath, or the discovered .simdup.toml when configPath is empty
//  3. defaults
//
// TOML files are decoded with go-toml; YAML and JSON files go through viper.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		if wd, err := os.Getwd(); err == nil {
			if found, err := FindConfigFile(wd); err == nil {
				configPath = found
			}
		}
	}

	viperFile := ""
	if configPath != "" {
		if isTOML(configPath) {
			if err := mergeTomlFile(cfg, configPath); err != nil {
				return nil, err
			}
		} else {
			viperFile = configPath
		}
	}

	v := newViper(cfg)
	if viperFile != "" {
		v.SetConfigFile(viperFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", viperFile, err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newViper returns an isolated viper instance whose defaults are cfg's
// current values, so environment variables override every key.
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range cfg.settings() {
		v.SetDefault(key, value)
	}
	return v
}

func (c *Config) settings() map[string]interface{} {
	return map[string]interface{}{
		"sketch.type":            c.Sketch.Type,
		"sketch.num_perm":        c.Sketch.NumPerm,
		"sketch.master_seed":     c.Sketch.MasterSeed,
		"lsh.threshold":          c.LSH.Threshold,
		"lsh.amplified":          c.LSH.Amplified,
		"lsh.minimum_r1":         c.LSH.MinimumR1,
		"lsh.bands":              c.LSH.Bands,
		"lsh.rows":               c.LSH.Rows,
		"lsh.fp_weight":          c.LSH.FPWeight,
		"lsh.fn_weight":          c.LSH.FNWeight,
		"optimizer.cache_path":   c.Optimizer.CachePath,
		"optimizer.exact_length": c.Optimizer.ExactLength,
		"optimizer.workers":      c.Optimizer.Workers,
		"input.include_patterns": c.Input.IncludePatterns,
		"input.exclude_patterns": c.Input.ExcludePatterns,
		"output.format":          c.Output.Format,
		"output.sort_by":         c.Output.SortBy,
		"output.min_similarity":  c.Output.MinSimilarity,
		"performance.workers":    c.Performance.Workers,
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	switch c.Sketch.Type {
	case string(domain.SketchMinHash), string(domain.SketchFill):
	default:
		return fmt.Errorf("invalid sketch.type '%s', must be one of: minhash, fill", c.Sketch.Type)
	}
	if c.Sketch.NumPerm < 1 {
		return fmt.Errorf("sketch.num_perm must be >= 1, got %d", c.Sketch.NumPerm)
	}

	if !(c.LSH.Threshold > 0 && c.LSH.Threshold < 1) {
		return fmt.Errorf("lsh.threshold must be in (0, 1), got %v", c.LSH.Threshold)
	}
	if c.LSH.MinimumR1 < 1 {
		return fmt.Errorf("lsh.minimum_r1 must be >= 1, got %d", c.LSH.MinimumR1)
	}
	if (c.LSH.Bands > 0) != (c.LSH.Rows > 0) || c.LSH.Bands < 0 || c.LSH.Rows < 0 {
		return fmt.Errorf("lsh.bands and lsh.rows must be set together, got %d and %d", c.LSH.Bands, c.LSH.Rows)
	}
	if c.LSH.Bands > 0 && c.LSH.Bands*c.LSH.Rows != c.Sketch.NumPerm {
		return fmt.Errorf("lsh.bands (%d) x lsh.rows (%d) must equal sketch.num_perm (%d)",
			c.LSH.Bands, c.LSH.Rows, c.Sketch.NumPerm)
	}
	if c.LSH.FPWeight < 0 || c.LSH.FNWeight < 0 {
		return fmt.Errorf("lsh.fp_weight and lsh.fn_weight must be >= 0")
	}

	if c.Optimizer.Workers < 0 || c.Performance.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}

	if _, err := domain.ParseOutputFormat(c.Output.Format); err != nil {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml, csv", c.Output.Format)
	}
	switch domain.SortCriteria(c.Output.SortBy) {
	case domain.SortByID, domain.SortBySimilarity:
	default:
		return fmt.Errorf("invalid output.sort_by '%s', must be one of: id, similarity", c.Output.SortBy)
	}
	if c.Output.MinSimilarity < 0 || c.Output.MinSimilarity > 1 {
		return fmt.Errorf("output.min_similarity must be in [0, 1], got %v", c.Output.MinSimilarity)
	}

	if len(c.Input.IncludePatterns) == 0 {
		return fmt.Errorf("input.include_patterns cannot be empty")
	}
	return nil
}
