package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/optimizer"
)

// ParamsServiceImpl implements the ParamsService interface. Tuners are kept
// per cache path so repeated requests share one in-memory cache.
type ParamsServiceImpl struct {
	logger   zerolog.Logger
	metrics  *Metrics
	progress domain.ProgressManager
	search   optimizer.SearchFunc

	mu     sync.Mutex
	tuners map[string]*optimizer.Tuner
}

// ParamsServiceOption configures a ParamsServiceImpl.
type ParamsServiceOption func(*ParamsServiceImpl)

// WithParamsMetrics records cache hits and search durations.
func WithParamsMetrics(m *Metrics) ParamsServiceOption {
	return func(s *ParamsServiceImpl) { s.metrics = m }
}

// WithParamsProgress reports search progress.
func WithParamsProgress(pm domain.ProgressManager) ParamsServiceOption {
	return func(s *ParamsServiceImpl) { s.progress = pm }
}

// WithSearchFunc replaces the optimizer search, mostly for tests.
func WithSearchFunc(fn optimizer.SearchFunc) ParamsServiceOption {
	return func(s *ParamsServiceImpl) { s.search = fn }
}

// NewParamsService creates a new params service
func NewParamsService(logger zerolog.Logger, opts ...ParamsServiceOption) *ParamsServiceImpl {
	s := &ParamsServiceImpl{
		logger: logger,
		tuners: make(map[string]*optimizer.Tuner),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ParamsServiceImpl) tunerOptions(autosave bool) []optimizer.TunerOption {
	opts := []optimizer.TunerOption{optimizer.WithAutosave(autosave)}
	if s.search != nil {
		opts = append(opts, optimizer.WithSearch(s.search))
	}
	return opts
}

// tuner returns the shared tuner for path, or a throwaway in-memory one.
func (s *ParamsServiceImpl) tuner(path string, noCache bool) (*optimizer.Tuner, error) {
	if noCache || path == "" {
		return optimizer.NewTuner(optimizer.NewCache(), s.logger, s.tunerOptions(false)...), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tuners[path]; ok {
		return t, nil
	}
	cache, err := optimizer.LoadCache(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load parameter cache", err)
	}
	t := optimizer.NewTuner(cache, s.logger, s.tunerOptions(true)...)
	s.tuners[path] = t
	return t, nil
}

// Optimize returns the banding parameters for one configuration
func (s *ParamsServiceImpl) Optimize(ctx context.Context, req *domain.ParamsRequest) (*domain.ParamsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	t, err := s.tuner(req.CachePath, req.NoCache)
	if err != nil {
		return nil, err
	}

	opts := req.Options()
	if req.ShowProgress && s.progress != nil {
		s.progress.Initialize("Searching parameters", 0)
		opts.Progress = s.progress.Update
	}

	started := time.Now()
	res, cached, err := t.Params(ctx, opts)
	if req.ShowProgress && s.progress != nil {
		s.progress.Complete(err == nil)
	}
	if err != nil {
		return nil, wrapSearchError(err)
	}
	if s.metrics != nil {
		s.metrics.ObserveParams(cached, started)
	}

	return &domain.ParamsResponse{
		Threshold:          req.Threshold,
		NumPerm:            req.NumPerm,
		Amplified:          req.Amplified,
		Params:             res.Params,
		Error:              res.Error,
		FP:                 res.FP,
		FN:                 res.FN,
		EffectiveThreshold: res.Params.Threshold(),
		Enumerated:         res.Enumerated,
		Scored:             res.Scored,
		Cached:             cached,
	}, nil
}

// Precompute fills the cache for every threshold, num_perm and
// amplification setting, saving once at the end or on cancellation.
func (s *ParamsServiceImpl) Precompute(ctx context.Context, req *domain.PrecomputeRequest) (*domain.PrecomputeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()

	cache, err := optimizer.LoadCache(req.CachePath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load parameter cache", err)
	}
	t := optimizer.NewTuner(cache, s.logger, s.tunerOptions(false)...)

	amplified := req.Amplified
	if len(amplified) == 0 {
		amplified = []bool{false, true}
	}
	total := len(req.Thresholds) * len(req.NumPerms) * len(amplified)
	if req.ShowProgress && s.progress != nil {
		s.progress.Initialize("Precomputing parameters", total)
		s.progress.Start()
	}

	resp := &domain.PrecomputeResponse{CachePath: req.CachePath}
	done := 0
	var runErr error
loop:
	for _, numPerm := range req.NumPerms {
		for _, threshold := range req.Thresholds {
			for _, amp := range amplified {
				opts := optimizer.DefaultOptions(optimizer.RoundThreshold(threshold), numPerm)
				opts.Amplified = amp
				opts.MinR1 = req.MinimumR1
				opts.Workers = req.Workers

				_, cached, err := t.Params(ctx, opts)
				if err != nil {
					runErr = err
					break loop
				}
				if cached {
					resp.Cached++
				} else {
					resp.Computed++
				}
				done++
				if req.ShowProgress && s.progress != nil {
					s.progress.Update(done, total)
				}
			}
		}
	}
	if req.ShowProgress && s.progress != nil {
		s.progress.Complete(runErr == nil)
	}

	if err := cache.Save(); err != nil {
		return nil, domain.NewOutputError("failed to save parameter cache", err)
	}
	if runErr != nil {
		return nil, wrapSearchError(runErr)
	}

	// Drop any tuner holding a stale view of this file.
	s.mu.Lock()
	delete(s.tuners, req.CachePath)
	s.mu.Unlock()

	resp.Records = cache.Len()
	resp.Duration = time.Since(started).Milliseconds()
	s.logger.Info().
		Int("computed", resp.Computed).
		Int("cached", resp.Cached).
		Str("path", req.CachePath).
		Msg("parameter cache precomputed")
	return resp, nil
}

// Report annotates the cached records with their error terms
func (s *ParamsServiceImpl) Report(ctx context.Context, req *domain.ReportRequest) (*domain.ReportResponse, error) {
	if req.CachePath == "" {
		return nil, domain.NewValidationError("a cache path is required")
	}
	cache, err := optimizer.LoadCache(req.CachePath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load parameter cache", err)
	}

	annotated := optimizer.Annotate(cache.Records())
	records := make([]optimizer.Annotated, 0, len(annotated))
	for _, a := range annotated {
		if req.NumPerm > 0 && a.NumPerm != req.NumPerm {
			continue
		}
		if req.Threshold > 0 && math.Abs(a.Threshold-req.Threshold) > optimizer.ThresholdTolerance {
			continue
		}
		records = append(records, a)
	}
	return &domain.ReportResponse{CachePath: req.CachePath, Records: records}, nil
}

func wrapSearchError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, optimizer.ErrInvalidThreshold),
		errors.Is(err, optimizer.ErrInvalidNumPerm),
		errors.Is(err, optimizer.ErrInvalidWeight):
		return domain.NewInvalidInputError("invalid optimizer input", err)
	default:
		return domain.NewAnalysisError("parameter search failed", err)
	}
}
