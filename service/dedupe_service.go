package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/simdup/domain"
	"github.com/ludo-technologies/simdup/internal/evaluation"
	"github.com/ludo-technologies/simdup/internal/ingest"
	"github.com/ludo-technologies/simdup/internal/lsh"
	"github.com/ludo-technologies/simdup/internal/optimizer"
	"github.com/ludo-technologies/simdup/internal/seed"
	"github.com/ludo-technologies/simdup/internal/sketch"
	"github.com/ludo-technologies/simdup/internal/version"
)

// DedupeServiceImpl implements the DedupeService interface
type DedupeServiceImpl struct {
	logger   zerolog.Logger
	params   domain.ParamsService
	metrics  *Metrics
	progress domain.ProgressManager
}

// NewDedupeService creates a new dedupe service. metrics and progress may be nil.
func NewDedupeService(logger zerolog.Logger, params domain.ParamsService, metrics *Metrics, progress domain.ProgressManager) *DedupeServiceImpl {
	return &DedupeServiceImpl{
		logger:   logger,
		params:   params,
		metrics:  metrics,
		progress: progress,
	}
}

// Dedupe signs every decoded item, bands the signatures and returns the
// candidate pairs with their estimated similarity.
func (s *DedupeServiceImpl) Dedupe(ctx context.Context, req *domain.DedupeRequest, records []ingest.Result) (*domain.DedupeResponse, error) {
	startTime := time.Now()

	items, failures := splitResults(records)
	summary := ingest.Summarize(records)
	if s.metrics != nil {
		s.metrics.ObserveIngest(summary.Records, summary.Items, summary.Failures, summary.Empty)
	}
	for _, f := range failures {
		s.logger.Warn().Str("source", f.Source).Int("index", f.Index).Str("error", f.Error).Msg("record skipped")
	}

	kind, err := sketch.ParseKind(string(req.SketchType))
	if err != nil {
		return nil, domain.NewInvalidInputError("unknown sketch type", err)
	}
	signers, err := sketch.NewSigners(req.NumPerm, seed.NewGenerator(req.MasterSeed))
	if err != nil {
		return nil, domain.NewInvalidInputError("cannot build signers", err)
	}
	signer, _ := signers.For(kind)

	sigs, err := s.sign(ctx, req, signer, items)
	if err != nil {
		return nil, err
	}

	params, source, fp, fn, err := s.resolveParams(ctx, req)
	if err != nil {
		return nil, err
	}

	idx, err := lsh.NewIndex(params, req.NumPerm)
	if err != nil {
		return nil, domain.NewParamsMismatchError(fmt.Sprintf("%s cannot index signatures of length %d", params, req.NumPerm), err)
	}
	for i, it := range items {
		if err := idx.Insert(it.ID, sigs[i]); err != nil {
			if errors.Is(err, lsh.ErrIncomparable) || errors.Is(err, sketch.ErrIncomparable) {
				return nil, domain.NewIncomparableSignatureError(it.ID, err)
			}
			return nil, domain.NewAnalysisError(fmt.Sprintf("failed to index %q", it.ID), err)
		}
	}

	candidates := idx.CandidatePairs()
	pairs, err := s.annotatePairs(req, idx, items, candidates)
	if err != nil {
		return nil, err
	}

	st := idx.Stats()
	if s.metrics != nil {
		s.metrics.ObserveIndex(st.Buckets, st.MaxBucketSize, len(candidates))
	}

	resp := &domain.DedupeResponse{
		Pairs:    pairs,
		Failures: failures,
		Statistics: &domain.DedupeStatistics{
			Files:          countSources(records),
			Records:        summary.Records,
			Items:          summary.Items,
			Failures:       summary.Failures,
			EmptyItems:     summary.Empty,
			SketchType:     req.SketchType,
			NumPerm:        req.NumPerm,
			Params:         params,
			ParamsSource:   source,
			Threshold:      req.Threshold,
			ExpectedFP:     fp,
			ExpectedFN:     fn,
			Buckets:        st.Buckets,
			MaxBucketSize:  st.MaxBucketSize,
			CandidatePairs: len(candidates),
			ReportedPairs:  len(pairs),
		},
		Duration:    time.Since(startTime).Milliseconds(),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}
	if report, ok := evaluation.Evaluate(items, candidates); ok {
		resp.Evaluation = &report
	}

	s.logger.Info().
		Int("items", summary.Items).
		Int("candidates", len(candidates)).
		Str("params", params.String()).
		Int64("duration_ms", resp.Duration).
		Msg("dedupe finished")
	return resp, nil
}

// sign builds the signatures in parallel. Cancellation is checked per item.
func (s *DedupeServiceImpl) sign(ctx context.Context, req *domain.DedupeRequest, signer sketch.Signer, items []ingest.Item) ([]sketch.Signature, error) {
	started := time.Now()
	sigs := make([]sketch.Signature, len(items))

	showProgress := req.ShowProgress && s.progress != nil
	if showProgress {
		s.progress.Initialize("Sketching", len(items))
		s.progress.Start()
	}
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	if req.Workers > 0 {
		g.SetLimit(req.Workers)
	} else {
		g.SetLimit(defaultWorkers())
	}
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sigs[i] = signer.Sign(items[i].Tokens)
			if showProgress {
				mu.Lock()
				done++
				s.progress.Update(done, len(items))
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()
	if showProgress {
		s.progress.Complete(err == nil)
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveSigning(started)
	}
	s.logger.Debug().
		Int("items", len(items)).
		Str("family", signer.Family().String()).
		Dur("elapsed", time.Since(started)).
		Msg("signatures built")
	return sigs, nil
}

// resolveParams uses explicit bands and rows when given and asks the
// params service otherwise.
func (s *DedupeServiceImpl) resolveParams(ctx context.Context, req *domain.DedupeRequest) (lsh.Params, domain.ParamsSource, float64, float64, error) {
	if req.HasExplicitBanding() {
		p := lsh.Standard(req.Bands, req.Rows)
		if err := p.Validate(req.NumPerm); err != nil {
			return lsh.Params{}, "", 0, 0, domain.NewParamsMismatchError("explicit bands and rows do not fit the signature", err)
		}
		_, fp, fn := optimizer.WeightedError(p, req.Threshold, req.FPWeight, req.FNWeight)
		return p, domain.ParamsFromFlags, fp, fn, nil
	}

	resp, err := s.params.Optimize(ctx, &domain.ParamsRequest{
		Threshold:   req.Threshold,
		NumPerm:     req.NumPerm,
		FPWeight:    req.FPWeight,
		FNWeight:    req.FNWeight,
		Amplified:   req.Amplified,
		MinimumR1:   req.MinimumR1,
		ExactLength: req.ExactLength,
		Workers:     req.OptimizerWorkers,
		CachePath:   req.CachePath,
		NoCache:     req.NoCache,
	})
	if err != nil {
		return lsh.Params{}, "", 0, 0, err
	}
	source := domain.ParamsFromOptimizer
	if resp.Cached {
		source = domain.ParamsFromCache
	}
	return resp.Params, source, resp.FP, resp.FN, nil
}

// annotatePairs attaches similarity estimates and duplicate flags, filters
// by the minimum similarity and sorts.
func (s *DedupeServiceImpl) annotatePairs(req *domain.DedupeRequest, idx *lsh.Index, items []ingest.Item, candidates []lsh.Pair) ([]domain.CandidatePair, error) {
	groups := make(map[string]string, len(items))
	for _, it := range items {
		groups[it.ID] = it.Group
	}

	pairs := make([]domain.CandidatePair, 0, len(candidates))
	for _, c := range candidates {
		a, _ := idx.Signature(c.A)
		b, _ := idx.Signature(c.B)
		sim, err := a.Similarity(b)
		if err != nil {
			return nil, domain.NewIncomparableSignatureError(c.B, err)
		}
		if sim < req.MinSimilarity {
			continue
		}
		pairs = append(pairs, domain.CandidatePair{
			A:          c.A,
			B:          c.B,
			Similarity: sim,
			Duplicate:  groups[c.A] != "" && groups[c.A] == groups[c.B],
		})
	}

	if req.SortBy == domain.SortBySimilarity {
		slices.SortStableFunc(pairs, func(x, y domain.CandidatePair) int {
			return cmp.Compare(y.Similarity, x.Similarity)
		})
	}
	return pairs, nil
}

func splitResults(records []ingest.Result) ([]ingest.Item, []domain.ItemFailure) {
	items := make([]ingest.Item, 0, len(records))
	var failures []domain.ItemFailure
	for _, r := range records {
		if r.OK() {
			items = append(items, r.Item)
			continue
		}
		failures = append(failures, domain.ItemFailure{Source: r.Source, Index: r.Index, Error: r.Err.Error()})
	}
	return items, failures
}

func countSources(records []ingest.Result) int {
	sources := make(map[string]struct{})
	for _, r := range records {
		sources[r.Source] = struct{}{}
	}
	return len(sources)
}

func defaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}
