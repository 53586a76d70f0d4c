package mcp

import (
	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/config"
	"github.com/ludo-technologies/simdup/service"
)

func NewTestDependencies(params domain.ParamsService, cfg *config.Config, path string) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := zerolog.Nop()
	if params == nil {
		params = service.NewParamsService(logger)
	}
	return &Dependencies{
		reader:     service.NewRecordReader(logger),
		params:     params,
		logger:     logger,
		config:     cfg,
		configPath: path,
	}
}
