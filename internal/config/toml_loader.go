package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// simdupToml mirrors .simdup.toml with pointer fields so unset keys keep
// their defaults.
type simdupToml struct {
	Sketch struct {
		Type       *string `toml:"type"`
		NumPerm    *int    `toml:"num_perm"`
		MasterSeed *uint64 `toml:"master_seed"`
	} `toml:"sketch"`

	LSH struct {
		Threshold *float64 `toml:"threshold"`
		Amplified *bool    `toml:"amplified"`
		MinimumR1 *int     `toml:"minimum_r1"`
		Bands     *int     `toml:"bands"`
		Rows      *int     `toml:"rows"`
		FPWeight  *float64 `toml:"fp_weight"`
		FNWeight  *float64 `toml:"fn_weight"`
	} `toml:"lsh"`

	Optimizer struct {
		CachePath   *string `toml:"cache_path"`
		ExactLength *bool   `toml:"exact_length"`
		Workers     *int    `toml:"workers"`
	} `toml:"optimizer"`

	Input struct {
		IncludePatterns []string `toml:"include_patterns"`
		ExcludePatterns []string `toml:"exclude_patterns"`
	} `toml:"input"`

	Output struct {
		Format        *string  `toml:"format"`
		SortBy        *string  `toml:"sort_by"`
		MinSimilarity *float64 `toml:"min_similarity"`
	} `toml:"output"`

	Performance struct {
		Workers *int `toml:"workers"`
	} `toml:"performance"`
}

// FindConfigFile walks up the directory tree from startDir to find .simdup.toml
func FindConfigFile(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// LoadTomlConfig reads a TOML file on top of the defaults without
// environment overrides or validation.
func LoadTomlConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := mergeTomlFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeTomlFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file simdupToml
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	mergeToml(cfg, &file)
	return nil
}

// mergeToml copies every key present in the file onto cfg.
func mergeToml(cfg *Config, file *simdupToml) {
	setString(&cfg.Sketch.Type, file.Sketch.Type)
	setInt(&cfg.Sketch.NumPerm, file.Sketch.NumPerm)
	if file.Sketch.MasterSeed != nil {
		cfg.Sketch.MasterSeed = *file.Sketch.MasterSeed
	}

	setFloat(&cfg.LSH.Threshold, file.LSH.Threshold)
	setBool(&cfg.LSH.Amplified, file.LSH.Amplified)
	setInt(&cfg.LSH.MinimumR1, file.LSH.MinimumR1)
	setInt(&cfg.LSH.Bands, file.LSH.Bands)
	setInt(&cfg.LSH.Rows, file.LSH.Rows)
	setFloat(&cfg.LSH.FPWeight, file.LSH.FPWeight)
	setFloat(&cfg.LSH.FNWeight, file.LSH.FNWeight)

	setString(&cfg.Optimizer.CachePath, file.Optimizer.CachePath)
	setBool(&cfg.Optimizer.ExactLength, file.Optimizer.ExactLength)
	setInt(&cfg.Optimizer.Workers, file.Optimizer.Workers)

	if file.Input.IncludePatterns != nil {
		cfg.Input.IncludePatterns = file.Input.IncludePatterns
	}
	if file.Input.ExcludePatterns != nil {
		cfg.Input.ExcludePatterns = file.Input.ExcludePatterns
	}

	setString(&cfg.Output.Format, file.Output.Format)
	setString(&cfg.Output.SortBy, file.Output.SortBy)
	setFloat(&cfg.Output.MinSimilarity, file.Output.MinSimilarity)

	setInt(&cfg.Performance.Workers, file.Performance.Workers)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
