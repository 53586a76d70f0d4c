package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/lsh"
)

type mockParamsService struct {
	mock.Mock
}

func (m *mockParamsService) Optimize(ctx context.Context, req *domain.ParamsRequest) (*domain.ParamsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParamsResponse), args.Error(1)
}

func (m *mockParamsService) Precompute(ctx context.Context, req *domain.PrecomputeRequest) (*domain.PrecomputeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PrecomputeResponse), args.Error(1)
}

func (m *mockParamsService) Report(ctx context.Context, req *domain.ReportRequest) (*domain.ReportResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReportResponse), args.Error(1)
}

type mockParamsFormatter struct {
	mock.Mock
}

func (m *mockParamsFormatter) WriteParams(response *domain.ParamsResponse, format domain.OutputFormat, writer io.Writer) error {
	return m.Called(response, format, writer).Error(0)
}

func (m *mockParamsFormatter) WritePrecompute(response *domain.PrecomputeResponse, format domain.OutputFormat, writer io.Writer) error {
	return m.Called(response, format, writer).Error(0)
}

func (m *mockParamsFormatter) WriteReport(response *domain.ReportResponse, format domain.OutputFormat, writer io.Writer) error {
	return m.Called(response, format, writer).Error(0)
}

func TestParamsUseCase_Optimize(t *testing.T) {
	service := &mockParamsService{}
	formatter := &mockParamsFormatter{}
	writer := &recordingWriter{}

	var out bytes.Buffer
	req := *domain.DefaultParamsRequest()
	req.OutputWriter = &out
	response := &domain.ParamsResponse{Params: lsh.Standard(32, 4)}

	service.On("Optimize", mock.Anything, mock.MatchedBy(func(r *domain.ParamsRequest) bool {
		return r.Threshold == domain.DefaultThreshold
	})).Return(response, nil)
	formatter.On("WriteParams", response, domain.OutputFormatText, &out).Return(nil)

	uc := NewParamsUseCase(service, formatter).WithOutputWriter(writer)
	require.NoError(t, uc.Optimize(context.Background(), req))
	service.AssertExpectations(t)
	formatter.AssertExpectations(t)

	req.OutputWriter = nil
	err := uc.Optimize(context.Background(), req)
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))
}

func TestParamsUseCase_OptimizeKeepsDomainErrors(t *testing.T) {
	service := &mockParamsService{}
	service.On("Optimize", mock.Anything, mock.Anything).
		Return(nil, domain.NewValidationError("threshold must be in (0, 1)"))

	req := *domain.DefaultParamsRequest()
	req.OutputWriter = io.Discard
	err := NewParamsUseCase(service, &mockParamsFormatter{}).Optimize(context.Background(), req)
	assert.Equal(t, domain.ErrCodeInvalidInput, domain.ErrorCode(err))
}

func TestParamsUseCase_Precompute(t *testing.T) {
	service := &mockParamsService{}
	formatter := &mockParamsFormatter{}
	response := &domain.PrecomputeResponse{Computed: 4}

	req := domain.PrecomputeRequest{
		Thresholds:   []float64{0.5},
		NumPerms:     []int{128},
		MinimumR1:    1,
		CachePath:    "params.json",
		OutputWriter: io.Discard,
	}
	service.On("Precompute", mock.Anything, mock.Anything).Return(response, nil)
	formatter.On("WritePrecompute", response, domain.OutputFormat(""), io.Discard).Return(nil)

	require.NoError(t, NewParamsUseCase(service, formatter).Precompute(context.Background(), req))
	formatter.AssertExpectations(t)

	failing := &mockParamsService{}
	failing.On("Precompute", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	err := NewParamsUseCase(failing, formatter).Precompute(context.Background(), req)
	assert.Equal(t, domain.ErrCodeAnalysisError, domain.ErrorCode(err))
}

func TestParamsUseCase_Report(t *testing.T) {
	service := &mockParamsService{}
	formatter := &mockParamsFormatter{}
	response := &domain.ReportResponse{CachePath: "params.json"}

	req := domain.ReportRequest{CachePath: "params.json", OutputFormat: domain.OutputFormatCSV, OutputWriter: io.Discard}
	service.On("Report", mock.Anything, &req).Return(response, nil)
	formatter.On("WriteReport", response, domain.OutputFormatCSV, io.Discard).Return(errors.New("closed pipe"))

	err := NewParamsUseCase(service, formatter).Report(context.Background(), req)
	assert.Equal(t, domain.ErrCodeOutputError, domain.ErrorCode(err))
}
