package lsh

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simdup/internal/seed"
	"github.com/ludo-technologies/simdup/internal/sketch"
)

func minHasher(t testing.TB, length int, s uint64) *sketch.MinHasher {
	t.Helper()
	mh, err := sketch.NewMinHasher(length, s)
	require.NoError(t, err)
	return mh
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		length  int
		wantErr error
	}{
		{"standard", Standard(16, 8), 128, nil},
		{"amplified", Amplified(4, 4, 4, 4), 256, nil},
		{"short", Standard(16, 4), 128, ErrParamsMismatch},
		{"zero rows", Standard(16, 0), 0, ErrInvalidParams},
		{"negative", Amplified(-2, 4, -2, 4), 64, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(tt.length)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParams_Probability(t *testing.T) {
	p := Standard(16, 8)
	assert.InDelta(t, 1-math.Pow(1-math.Pow(0.6, 8), 16), p.Probability(0.6), 1e-12)
	assert.Equal(t, 0.0, p.Probability(0))
	assert.Equal(t, 1.0, p.Probability(1))

	a := Amplified(2, 3, 4, 5)
	unit := 1 - math.Pow(1-math.Pow(0.7, 3), 2)
	want := 1 - math.Pow(1-math.Pow(unit, 5), 4)
	assert.InDelta(t, want, a.Probability(0.7), 1e-12)
	assert.True(t, a.IsAmplified())
	assert.False(t, p.IsAmplified())
	assert.Equal(t, 120, a.Length())
}

func TestParams_JSON(t *testing.T) {
	data, err := Amplified(2, 3, 4, 5).MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[[2,4],[3,5]]`, string(data))

	var p Params
	require.NoError(t, p.UnmarshalJSON([]byte(`[[16,1],[8,1]]`)))
	assert.Equal(t, Standard(16, 8), p)
	assert.Error(t, p.UnmarshalJSON([]byte(`"bad"`)))
}

func TestNewIndex_Mismatch(t *testing.T) {
	_, err := NewIndex(Standard(10, 10), 128)
	assert.ErrorIs(t, err, ErrParamsMismatch)

	idx, err := NewIndex(Standard(32, 4), 128)
	require.NoError(t, err)
	assert.Equal(t, Standard(32, 4), idx.Params())
	assert.Equal(t, 0, idx.Size())
}

func TestIndex_IdenticalAndDisjoint(t *testing.T) {
	mh := minHasher(t, 128, 3)
	idx, err := NewIndex(Standard(32, 4), 128)
	require.NoError(t, err)

	require.NoError(t, idx.Insert("a", mh.Sign([]string{"x", "y", "z"})))
	require.NoError(t, idx.Insert("b", mh.Sign([]string{"z", "y", "x"})))
	require.NoError(t, idx.Insert("c", mh.Sign([]string{"p", "q", "r", "s"})))

	assert.Equal(t, []Pair{{A: "a", B: "b"}}, idx.CandidatePairs())
	assert.Equal(t, 1, idx.NumCandidates())
	assert.Equal(t, 3, idx.Size())
}

func TestIndex_InsertErrors(t *testing.T) {
	mh := minHasher(t, 64, 1)
	idx, err := NewIndex(Standard(16, 4), 64)
	require.NoError(t, err)

	sig := mh.Sign([]string{"a", "b"})
	require.NoError(t, idx.Insert("x", sig))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, idx.Insert("x", sig))
		assert.Equal(t, 1, idx.Size())
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := idx.Insert("x", mh.Sign([]string{"c"}))
		assert.ErrorIs(t, err, ErrDuplicateID)
	})

	t.Run("empty id", func(t *testing.T) {
		assert.ErrorIs(t, idx.Insert("", sig), ErrEmptyID)
	})

	t.Run("other seed", func(t *testing.T) {
		other := minHasher(t, 64, 2)
		err := idx.Insert("y", other.Sign([]string{"a", "b"}))
		assert.ErrorIs(t, err, ErrIncomparable)
	})

	t.Run("other kind", func(t *testing.T) {
		fs, err := sketch.NewFillSketcher(64, [2]uint64{1, 1})
		require.NoError(t, err)
		assert.ErrorIs(t, idx.Insert("y", fs.Sign([]string{"a"})), ErrIncomparable)
	})

	t.Run("other length", func(t *testing.T) {
		short := minHasher(t, 32, 1)
		assert.ErrorIs(t, idx.Insert("y", short.Sign([]string{"a"})), ErrIncomparable)
	})

	assert.Equal(t, []string{"x"}, idx.IDs())
}

func TestIndex_EmptySignaturesNeverPair(t *testing.T) {
	mh := minHasher(t, 16, 1)
	idx, err := NewIndex(Standard(4, 4), 16)
	require.NoError(t, err)

	require.NoError(t, idx.Insert("e1", mh.Sign(nil)))
	require.NoError(t, idx.Insert("e2", mh.Sign(nil)))
	require.NoError(t, idx.Insert("n", mh.Sign([]string{"a"})))

	assert.Empty(t, idx.CandidatePairs())
	st := idx.Stats()
	assert.Equal(t, 3, st.Items)
	assert.Equal(t, 2, st.EmptyItems)
}

func buildCorpus(n int, r *rand.Rand) map[string][]string {
	docs := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		base := r.IntN(8)
		toks := make([]string, 0, 12)
		for j := 0; j < 12; j++ {
			if r.IntN(4) == 0 {
				toks = append(toks, fmt.Sprintf("noise%d", r.IntN(1000)))
			} else {
				toks = append(toks, fmt.Sprintf("b%d-t%d", base, j))
			}
		}
		docs[fmt.Sprintf("doc%03d", i)] = toks
	}
	return docs
}

func TestIndex_OrderIndependentNoSelfPairs(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	docs := buildCorpus(60, r)
	mh := minHasher(t, 64, 9)

	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}

	build := func(order []string, p Params) []Pair {
		idx, err := NewIndex(p, 64)
		require.NoError(t, err)
		for _, id := range order {
			require.NoError(t, idx.Insert(id, mh.Sign(docs[id])))
		}
		return idx.CandidatePairs()
	}

	for _, p := range []Params{Standard(16, 4), Amplified(2, 2, 4, 4)} {
		t.Run(p.String(), func(t *testing.T) {
			first := build(ids, p)
			shuffled := append([]string(nil), ids...)
			r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			second := build(shuffled, p)

			assert.Equal(t, first, second)
			assert.NotEmpty(t, first)
			for i, pair := range first {
				assert.Less(t, pair.A, pair.B)
				if i > 0 {
					prev := first[i-1]
					assert.True(t, prev.A < pair.A || (prev.A == pair.A && prev.B < pair.B))
				}
			}
		})
	}
}

func TestIndex_QueryMatchesCandidatePairs(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	docs := buildCorpus(40, r)
	mh := minHasher(t, 64, 5)

	for _, p := range []Params{Standard(16, 4), Amplified(2, 2, 4, 4)} {
		t.Run(p.String(), func(t *testing.T) {
			idx, err := NewIndex(p, 64)
			require.NoError(t, err)
			for id, toks := range docs {
				require.NoError(t, idx.Insert(id, mh.Sign(toks)))
			}

			partners := make(map[string]map[string]bool)
			for _, pair := range idx.CandidatePairs() {
				for _, id := range []string{pair.A, pair.B} {
					if partners[id] == nil {
						partners[id] = make(map[string]bool)
					}
				}
				partners[pair.A][pair.B] = true
				partners[pair.B][pair.A] = true
			}

			for id, toks := range docs {
				got, err := idx.Query(mh.Sign(toks))
				require.NoError(t, err)
				// The query also matches the item itself.
				want := len(partners[id]) + 1
				assert.Len(t, got, want, id)
				assert.Contains(t, got, id)
				for _, other := range got {
					if other != id {
						assert.True(t, partners[id][other], "%s-%s", id, other)
					}
				}
			}
		})
	}
}

func TestIndex_AmplifiedRequiresAllUnits(t *testing.T) {
	// One group of two units with one single-row band each: slot 0 and slot 1.
	f := sketch.Family{Kind: sketch.KindMinHash, Seeds: [2]uint64{1}}
	idx, err := NewIndex(Amplified(1, 1, 1, 2), 2)
	require.NoError(t, err)

	require.NoError(t, idx.Insert("a", sketch.FromValues(f, []uint64{1, 2})))
	require.NoError(t, idx.Insert("b", sketch.FromValues(f, []uint64{1, 3})))
	assert.Empty(t, idx.CandidatePairs(), "one unit only")

	require.NoError(t, idx.Insert("c", sketch.FromValues(f, []uint64{1, 2})))
	assert.Equal(t, []Pair{{A: "a", B: "c"}}, idx.CandidatePairs())

	// Two groups of one unit: either slot suffices.
	or, err := NewIndex(Amplified(1, 1, 2, 1), 2)
	require.NoError(t, err)
	require.NoError(t, or.Insert("a", sketch.FromValues(f, []uint64{1, 2})))
	require.NoError(t, or.Insert("b", sketch.FromValues(f, []uint64{1, 3})))
	assert.Equal(t, []Pair{{A: "a", B: "b"}}, or.CandidatePairs())
}

func TestIndex_BandCollisionRate(t *testing.T) {
	// Jaccard({a,b,c,d},{a,b,c,e}) = 3/5; a single band of r rows should
	// collide with probability s^r.
	const trials = 2000
	s := 3.0 / 5.0
	gen := seed.NewGenerator(42)

	for _, r := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("r=%d", r), func(t *testing.T) {
			hits := 0
			for i := 0; i < trials; i++ {
				mh := minHasher(t, r, gen.Next())
				idx, err := NewIndex(Standard(1, r), r)
				require.NoError(t, err)
				require.NoError(t, idx.Insert("x", mh.Sign([]string{"a", "b", "c", "d"})))
				require.NoError(t, idx.Insert("y", mh.Sign([]string{"a", "b", "c", "e"})))
				hits += idx.NumCandidates()
			}
			assert.InDelta(t, math.Pow(s, float64(r)), float64(hits)/trials, 0.04)
		})
	}
}

func TestIndex_EndToEndCandidateRate(t *testing.T) {
	// Signatures of length 128 banded as 16 bands of 8 rows.
	const trials = 1000
	p := Standard(16, 8)
	want := p.Probability(3.0 / 5.0)
	gen := seed.NewGenerator(2024)

	hits := 0
	for i := 0; i < trials; i++ {
		signers, err := sketch.NewSigners(128, gen)
		require.NoError(t, err)
		idx, err := NewIndex(p, 128)
		require.NoError(t, err)
		require.NoError(t, idx.Insert("left", signers.MinHash.Sign([]string{"a", "b", "c", "d"})))
		require.NoError(t, idx.Insert("right", signers.MinHash.Sign([]string{"a", "b", "c", "e"})))
		hits += len(idx.CandidatePairs())
	}
	assert.InDelta(t, 0.237, want, 0.001)
	assert.InDelta(t, want, float64(hits)/trials, 0.06)
}

func TestIndex_Stats(t *testing.T) {
	mh := minHasher(t, 32, 1)
	idx, err := NewIndex(Standard(8, 4), 32)
	require.NoError(t, err)
	require.NoError(t, idx.Insert("a", mh.Sign([]string{"x"})))
	require.NoError(t, idx.Insert("b", mh.Sign([]string{"x"})))

	st := idx.Stats()
	assert.Equal(t, 2, st.Items)
	assert.Equal(t, 8, st.Bands)
	assert.Equal(t, 8, st.Buckets)
	assert.Equal(t, 2, st.MaxBucketSize)
	assert.Equal(t, 2.0, st.AvgBucketSize)
	assert.Equal(t, 1, st.CandidatePairs)

	got, ok := idx.Signature("a")
	require.True(t, ok)
	assert.Equal(t, 32, got.Len())
	_, ok = idx.Signature("missing")
	assert.False(t, ok)
}

func BenchmarkIndex_Insert(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 1))
	docs := buildCorpus(1000, r)
	mh := minHasher(b, 128, 1)
	sigs := make(map[string]sketch.Signature, len(docs))
	for id, toks := range docs {
		sigs[id] = mh.Sign(toks)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx, _ := NewIndex(Amplified(4, 4, 4, 2), 128)
		for id, sig := range sigs {
			_ = idx.Insert(id, sig)
		}
		_ = idx.CandidatePairs()
	}
}
