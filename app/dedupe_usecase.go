package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/simdup/domain"
	svc "github.com/ludo-technologies/simdup/service"
)

// MetricsFormat labels the Prometheus dump in status messages.
const MetricsFormat domain.OutputFormat = "metrics"

// DedupeUseCase orchestrates the near-duplicate detection workflow
type DedupeUseCase struct {
	service      domain.DedupeService
	reader       domain.RecordReader
	formatter    domain.DedupeOutputFormatter
	configLoader domain.DedupeConfigurationLoader
	output       domain.ReportWriter
	metrics      domain.MetricsWriter
}

// NewDedupeUseCase creates a new dedupe use case
func NewDedupeUseCase(
	service domain.DedupeService,
	reader domain.RecordReader,
	formatter domain.DedupeOutputFormatter,
	configLoader domain.DedupeConfigurationLoader,
) *DedupeUseCase {
	return &DedupeUseCase{
		service:      service,
		reader:       reader,
		formatter:    formatter,
		configLoader: configLoader,
		output:       svc.NewFileOutputWriter(nil),
	}
}

// prepare merges configuration, validates the result and decodes the records.
// Config is merged before validation so that flags left unset fall back to
// the config file or the built-in defaults.
func (uc *DedupeUseCase) prepare(ctx context.Context, req domain.DedupeRequest) (domain.DedupeRequest, *domain.DedupeResponse, error) {
	finalReq, err := uc.loadAndMergeConfig(req)
	if err != nil {
		return req, nil, domain.NewConfigError("failed to load configuration", err)
	}
	if err := finalReq.Validate(); err != nil {
		return req, nil, err
	}

	files, err := uc.reader.CollectRecordFiles(finalReq.Paths, finalReq.IncludePatterns, finalReq.ExcludePatterns)
	if err != nil {
		return req, nil, passOrWrap(err, func(err error) error {
			return domain.NewFileNotFoundError("failed to collect record files", err)
		})
	}

	records, err := uc.reader.ReadRecords(ctx, files)
	if err != nil {
		return req, nil, passOrWrap(err, func(err error) error {
			return domain.NewInvalidInputError("failed to read records", err)
		})
	}

	response, err := uc.service.Dedupe(ctx, &finalReq, records)
	if err != nil {
		return req, nil, passOrWrap(err, func(err error) error {
			return domain.NewAnalysisError("near-duplicate detection failed", err)
		})
	}
	if response.Statistics != nil {
		response.Statistics.Files = len(files)
	}
	return finalReq, response, nil
}

// Execute performs the complete workflow and writes the report
func (uc *DedupeUseCase) Execute(ctx context.Context, req domain.DedupeRequest) error {
	if req.OutputWriter == nil && req.OutputPath == "" {
		return domain.NewInvalidInputError("output writer or output path is required", nil)
	}
	finalReq, response, err := uc.prepare(ctx, req)
	if err != nil {
		return err
	}

	var out io.Writer
	if finalReq.OutputPath == "" {
		out = finalReq.OutputWriter
	}
	if err := uc.output.Write(out, finalReq.OutputPath, finalReq.OutputFormat, func(w io.Writer) error {
		return uc.formatter.Write(response, finalReq.OutputFormat, w)
	}); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}

	return uc.writeMetrics(finalReq.MetricsPath)
}

// AnalyzeAndReturn runs detection and returns the response without formatting
func (uc *DedupeUseCase) AnalyzeAndReturn(ctx context.Context, req domain.DedupeRequest) (*domain.DedupeResponse, error) {
	_, response, err := uc.prepare(ctx, req)
	return response, err
}

func (uc *DedupeUseCase) writeMetrics(path string) error {
	if path == "" || uc.metrics == nil {
		return nil
	}
	if err := uc.output.Write(nil, path, MetricsFormat, func(w io.Writer) error {
		uc.metrics.WritePrometheus(w)
		return nil
	}); err != nil {
		return domain.NewOutputError("failed to write metrics", err)
	}
	return nil
}

// loadAndMergeConfig loads configuration from file and merges with request
func (uc *DedupeUseCase) loadAndMergeConfig(req domain.DedupeRequest) (domain.DedupeRequest, error) {
	if uc.configLoader == nil {
		return req, nil
	}

	var configReq *domain.DedupeRequest
	var err error

	if req.ConfigPath != "" {
		configReq, err = uc.configLoader.LoadConfig(req.ConfigPath)
		if err != nil {
			return req, fmt.Errorf("failed to load config from %s: %w", req.ConfigPath, err)
		}
	} else {
		configReq = uc.configLoader.LoadDefaultConfig()
	}

	if configReq != nil {
		merged := uc.configLoader.MergeConfig(configReq, &req)
		return *merged, nil
	}

	return req, nil
}

// passOrWrap keeps errors that already carry a domain code.
func passOrWrap(err error, wrap func(error) error) error {
	if domain.ErrorCode(err) != "" {
		return err
	}
	return wrap(err)
}

// DedupeUseCaseBuilder provides a builder pattern for creating DedupeUseCase
type DedupeUseCaseBuilder struct {
	service      domain.DedupeService
	reader       domain.RecordReader
	formatter    domain.DedupeOutputFormatter
	configLoader domain.DedupeConfigurationLoader
	output       domain.ReportWriter
	metrics      domain.MetricsWriter
}

// NewDedupeUseCaseBuilder creates a new builder
func NewDedupeUseCaseBuilder() *DedupeUseCaseBuilder {
	return &DedupeUseCaseBuilder{}
}

// WithService sets the dedupe service
func (b *DedupeUseCaseBuilder) WithService(service domain.DedupeService) *DedupeUseCaseBuilder {
	b.service = service
	return b
}

// WithRecordReader sets the record reader
func (b *DedupeUseCaseBuilder) WithRecordReader(reader domain.RecordReader) *DedupeUseCaseBuilder {
	b.reader = reader
	return b
}

// WithFormatter sets the output formatter
func (b *DedupeUseCaseBuilder) WithFormatter(formatter domain.DedupeOutputFormatter) *DedupeUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithConfigLoader sets the configuration loader
func (b *DedupeUseCaseBuilder) WithConfigLoader(configLoader domain.DedupeConfigurationLoader) *DedupeUseCaseBuilder {
	b.configLoader = configLoader
	return b
}

// WithOutputWriter sets the report writer
func (b *DedupeUseCaseBuilder) WithOutputWriter(output domain.ReportWriter) *DedupeUseCaseBuilder {
	b.output = output
	return b
}

// WithMetrics sets where the metrics dump comes from
func (b *DedupeUseCaseBuilder) WithMetrics(metrics domain.MetricsWriter) *DedupeUseCaseBuilder {
	b.metrics = metrics
	return b
}

// Build creates the DedupeUseCase with the configured dependencies
func (b *DedupeUseCaseBuilder) Build() (*DedupeUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("dedupe service is required")
	}
	if b.reader == nil {
		return nil, fmt.Errorf("record reader is required")
	}
	if b.formatter == nil {
		return nil, fmt.Errorf("output formatter is required")
	}

	uc := NewDedupeUseCase(b.service, b.reader, b.formatter, b.configLoader)
	if b.output != nil {
		uc.output = b.output
	}
	uc.metrics = b.metrics
	return uc, nil
}
