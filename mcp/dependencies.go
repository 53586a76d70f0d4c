package mcp

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simdup/app"
	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/config"
	"github.com/ludo-technologies/simdup/service"
)

// Dependencies aggregates the shared services required by MCP handlers.
// The parameter service lives as long as the server so its tuners and
// cache are reused across tool calls.
type Dependencies struct {
	reader     domain.RecordReader
	params     domain.ParamsService
	logger     zerolog.Logger
	config     *config.Config
	configPath string
}

// NewDependencies constructs the dependency set with sane defaults.
func NewDependencies(cfg *config.Config, configPath string, logger zerolog.Logger) *Dependencies {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	return &Dependencies{
		reader:     service.NewRecordReader(logger),
		params:     service.NewParamsService(logger),
		logger:     logger,
		config:     cfg,
		configPath: configPath,
	}
}

// Config exposes the loaded configuration snapshot.
func (d *Dependencies) Config() *config.Config {
	return d.config
}

// ConfigPath returns the configured config file path (may be empty to trigger discovery).
func (d *Dependencies) ConfigPath() string {
	return d.configPath
}

// DedupeRequest returns a request seeded from the configuration snapshot.
func (d *Dependencies) DedupeRequest() *domain.DedupeRequest {
	return service.DedupeRequestFromConfig(d.config)
}

// ParamsRequest returns a parameter request seeded from the configuration snapshot.
func (d *Dependencies) ParamsRequest() *domain.ParamsRequest {
	return service.ParamsRequestFromConfig(d.config)
}

// ParamsService exposes the shared parameter service.
func (d *Dependencies) ParamsService() domain.ParamsService {
	return d.params
}

// DedupeService assembles a dedupe service with its own metrics set.
func (d *Dependencies) DedupeService() domain.DedupeService {
	return service.NewDedupeService(d.logger, d.params, service.NewMetrics(), nil)
}

// BuildDedupeUseCase assembles a fresh DedupeUseCase with injected dependencies.
// Requests are already merged with the configuration, so no loader is wired.
func (d *Dependencies) BuildDedupeUseCase() (*app.DedupeUseCase, error) {
	return app.NewDedupeUseCaseBuilder().
		WithService(d.DedupeService()).
		WithRecordReader(d.reader).
		WithFormatter(service.NewDedupeFormatter()).
		Build()
}

// defaultLogger writes warnings to stderr, stdout carries JSON-RPC.
func defaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.WarnLevel).
		With().Timestamp().Logger()
}
