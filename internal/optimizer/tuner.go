package optimizer

import (
	"context"

	"github.com/rs/zerolog"
)

// SearchFunc runs a parameter search.
type SearchFunc func(ctx context.Context, opts Options) (Result, error)

// Tuner answers parameter requests from a cache and falls back to a search.
type Tuner struct {
	cache    *Cache
	search   SearchFunc
	logger   zerolog.Logger
	autosave bool
}

// TunerOption configures a Tuner.
type TunerOption func(*Tuner)

// WithSearch replaces the search function.
func WithSearch(fn SearchFunc) TunerOption {
	return func(t *Tuner) { t.search = fn }
}

// WithAutosave writes the cache after every search.
func WithAutosave(on bool) TunerOption {
	return func(t *Tuner) { t.autosave = on }
}

// NewTuner creates a tuner over cache. A nil cache is replaced by an
// in-memory one.
func NewTuner(cache *Cache, logger zerolog.Logger, opts ...TunerOption) *Tuner {
	if cache == nil {
		cache = NewCache()
	}
	t := &Tuner{cache: cache, search: Search, logger: logger, autosave: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cache returns the underlying cache.
func (t *Tuner) Cache() *Cache { return t.cache }

// Params returns the parameters for opts and whether they came from the
// cache. A cached record computed with other non-default weights or
// another minimum r1 does not count as a hit.
func (t *Tuner) Params(ctx context.Context, opts Options) (Result, bool, error) {
	if err := opts.validate(); err != nil {
		return Result{}, false, err
	}

	if rec, ok := t.cache.Lookup(opts.Threshold, opts.NumPerm, opts.Amplified); ok && compatible(rec, opts) {
		res := Result{Params: rec.Params}
		if rec.Error != nil && rec.FP != nil && rec.FN != nil {
			res.Error, res.FP, res.FN = *rec.Error, *rec.FP, *rec.FN
		} else {
			res.Error, res.FP, res.FN = WeightedError(rec.Params, opts.Threshold, opts.FPWeight, opts.FNWeight)
		}
		t.logger.Debug().
			Float64("threshold", opts.Threshold).
			Int("num_perm", opts.NumPerm).
			Bool("amplified", opts.Amplified).
			Str("params", rec.Params.String()).
			Msg("parameter cache hit")
		return res, true, nil
	}

	t.logger.Info().
		Float64("threshold", opts.Threshold).
		Int("num_perm", opts.NumPerm).
		Bool("amplified", opts.Amplified).
		Int("minimum_r1", opts.MinR1).
		Msg("searching band parameters")

	res, err := t.search(ctx, opts)
	if err != nil {
		return Result{}, false, err
	}

	rec := Record{
		Threshold: opts.Threshold,
		NumPerm:   opts.NumPerm,
		Amplified: opts.Amplified,
		Params:    res.Params,
		Error:     ptr(res.Error),
		FP:        ptr(res.FP),
		FN:        ptr(res.FN),
	}
	if opts.FPWeight != DefaultFPWeight || opts.FNWeight != DefaultFNWeight {
		rec.FPWeight, rec.FNWeight = opts.FPWeight, opts.FNWeight
	}
	if opts.MinR1 > 1 {
		rec.MinR1 = opts.MinR1
	}
	t.cache.Store(rec)

	if t.autosave {
		if err := t.cache.Save(); err != nil {
			t.logger.Warn().Err(err).Str("path", t.cache.Path()).Msg("failed to save parameter cache")
		}
	}
	t.logger.Info().
		Str("params", res.Params.String()).
		Float64("error", res.Error).
		Int("enumerated", res.Enumerated).
		Msg("band parameters found")
	return res, false, nil
}

// compatible reports whether a record may answer a request. Records written
// without weights or minimum r1 were computed with the defaults.
func compatible(rec Record, opts Options) bool {
	fpW, fnW := rec.FPWeight, rec.FNWeight
	if fpW == 0 && fnW == 0 {
		fpW, fnW = DefaultFPWeight, DefaultFNWeight
	}
	if fpW != opts.FPWeight || fnW != opts.FNWeight {
		return false
	}
	return max(rec.MinR1, 1) == max(opts.MinR1, 1)
}
