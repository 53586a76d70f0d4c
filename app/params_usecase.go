package app

import (
	"context"
	"fmt"
	"io"

	"github.com/ludo-technologies/simdup/domain"
	svc "github.com/ludo-technologies/simdup/service"
)

// ParamsUseCase orchestrates the band parameter commands
type ParamsUseCase struct {
	service   domain.ParamsService
	formatter domain.ParamsOutputFormatter
	output    domain.ReportWriter
}

// NewParamsUseCase creates a new params use case
func NewParamsUseCase(service domain.ParamsService, formatter domain.ParamsOutputFormatter) *ParamsUseCase {
	return &ParamsUseCase{
		service:   service,
		formatter: formatter,
		output:    svc.NewFileOutputWriter(nil),
	}
}

// WithOutputWriter replaces the report writer
func (uc *ParamsUseCase) WithOutputWriter(output domain.ReportWriter) *ParamsUseCase {
	uc.output = output
	return uc
}

// Optimize resolves the parameters for one configuration and writes them
func (uc *ParamsUseCase) Optimize(ctx context.Context, req domain.ParamsRequest) error {
	if req.OutputWriter == nil && req.OutputPath == "" {
		return domain.NewInvalidInputError("output writer or output path is required", nil)
	}
	response, err := uc.service.Optimize(ctx, &req)
	if err != nil {
		return passOrWrap(err, func(err error) error {
			return domain.NewAnalysisError("parameter search failed", err)
		})
	}

	var out io.Writer
	if req.OutputPath == "" {
		out = req.OutputWriter
	}
	if err := uc.output.Write(out, req.OutputPath, req.OutputFormat, func(w io.Writer) error {
		return uc.formatter.WriteParams(response, req.OutputFormat, w)
	}); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// Precompute fills the parameter cache and writes a summary
func (uc *ParamsUseCase) Precompute(ctx context.Context, req domain.PrecomputeRequest) error {
	if req.OutputWriter == nil {
		return domain.NewInvalidInputError("output writer is required", nil)
	}
	response, err := uc.service.Precompute(ctx, &req)
	if err != nil {
		return passOrWrap(err, func(err error) error {
			return domain.NewAnalysisError("precompute failed", err)
		})
	}
	if err := uc.formatter.WritePrecompute(response, req.OutputFormat, req.OutputWriter); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}

// Report writes the annotated parameter cache
func (uc *ParamsUseCase) Report(ctx context.Context, req domain.ReportRequest) error {
	if req.OutputWriter == nil {
		return domain.NewInvalidInputError("output writer is required", nil)
	}
	response, err := uc.service.Report(ctx, &req)
	if err != nil {
		return passOrWrap(err, func(err error) error {
			return domain.NewConfigError(fmt.Sprintf("failed to read parameter cache %s", req.CachePath), err)
		})
	}
	if err := uc.formatter.WriteReport(response, req.OutputFormat, req.OutputWriter); err != nil {
		return domain.NewOutputError("failed to write output", err)
	}
	return nil
}
