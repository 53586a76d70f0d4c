package sketch

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/simdup/internal/seed"
)

func tokens(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func shuffled(in []string, r *rand.Rand) []string {
	out := append([]string(nil), in...)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func signers(t *testing.T, length int) map[string]Signer {
	t.Helper()
	s, err := NewSigners(length, seed.NewGenerator(11))
	require.NoError(t, err)
	return map[string]Signer{"minhash": s.MinHash, "fill": s.Fill}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"minhash", KindMinHash, false},
		{"", KindMinHash, false},
		{"FILL", KindFill, false},
		{"fss", KindFill, false},
		{"bloom", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestInvalidLength(t *testing.T) {
	_, err := NewMinHash(0, 1)
	assert.ErrorIs(t, err, ErrInvalidLength)
	_, err = NewMinHasher(-1, 1)
	assert.ErrorIs(t, err, ErrInvalidLength)
	_, err = NewFillSketcher(0, [2]uint64{1, 2})
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestMinHash_UpdateOrderAndDuplicates(t *testing.T) {
	a, err := NewMinHash(64, 5)
	require.NoError(t, err)
	b, err := NewMinHash(64, 5)
	require.NoError(t, err)

	for _, tok := range []string{"x", "y", "z"} {
		a.Update([]byte(tok))
	}
	for _, tok := range []string{"z", "x", "y", "x", "z"} {
		b.UpdateString(tok)
	}

	assert.True(t, a.Signature().Equal(b.Signature()))
}

func TestMinHash_SlotsNeverIncrease(t *testing.T) {
	m, err := NewMinHash(32, 9)
	require.NoError(t, err)

	prev := m.Signature().Values()
	for _, tok := range tokens("t", 50) {
		m.UpdateString(tok)
		cur := m.Signature().Values()
		for i := range cur {
			assert.LessOrEqual(t, cur[i], prev[i])
		}
		prev = cur
	}
}

func TestMinHash_SignatureIsSnapshot(t *testing.T) {
	m, err := NewMinHash(16, 1)
	require.NoError(t, err)
	m.UpdateString("a")
	before := m.Signature()
	m.UpdateString("b")
	m.UpdateString("c")

	after := m.Signature()
	assert.Equal(t, 16, m.Len())
	assert.False(t, before.IsEmpty())
	assert.False(t, before.Equal(after))
	vals := before.Values()
	vals[0] = 0
	assert.NotEqual(t, uint64(0), before.At(0))
}

func TestSigners_Deterministic(t *testing.T) {
	set := tokens("tok", 40)
	r := rand.New(rand.NewPCG(1, 2))

	for name := range signers(t, 128) {
		t.Run(name, func(t *testing.T) {
			first := signers(t, 128)[name].Sign(set)
			second := signers(t, 128)[name].Sign(shuffled(set, r))
			third := signers(t, 128)[name].Sign(append(shuffled(set, r), set[:10]...))

			assert.True(t, first.Equal(second), "token order must not matter")
			assert.True(t, first.Equal(third), "duplicates must not matter")
		})
	}
}

func TestSigners_SelfSimilarity(t *testing.T) {
	for name, s := range signers(t, 64) {
		t.Run(name, func(t *testing.T) {
			sig := s.Sign(tokens("a", 7))
			sim, err := sig.Similarity(sig)
			require.NoError(t, err)
			assert.Equal(t, 1.0, sim)
		})
	}
}

func TestSigners_DisjointSets(t *testing.T) {
	for name, s := range signers(t, 512) {
		t.Run(name, func(t *testing.T) {
			a := s.Sign(tokens("left", 30))
			b := s.Sign(tokens("right", 30))
			sim, err := a.Similarity(b)
			require.NoError(t, err)
			assert.Less(t, sim, 0.02)
		})
	}
}

func TestSigners_PartialOverlap(t *testing.T) {
	shared := tokens("shared", 10)
	a := append(append([]string{}, shared...), tokens("a", 10)...)
	b := append(append([]string{}, shared...), tokens("b", 10)...)
	want := 10.0 / 30.0

	for name, s := range signers(t, 256) {
		t.Run(name, func(t *testing.T) {
			sim, err := s.Sign(a).Similarity(s.Sign(b))
			require.NoError(t, err)
			assert.InDelta(t, want, sim, 0.12)
		})
	}
}

func TestSigners_EstimatorVarianceShrinks(t *testing.T) {
	// Identical sets give exactly 1; half-overlapping sets concentrate
	// around 1/3 with spread shrinking as the length grows.
	shared := tokens("s", 20)
	a := append(append([]string{}, shared...), tokens("a", 20)...)
	b := append(append([]string{}, shared...), tokens("b", 20)...)

	spread := func(length int) float64 {
		var sumSq float64
		const runs = 40
		for r := 0; r < runs; r++ {
			s, err := NewMinHasher(length, uint64(1000+r))
			require.NoError(t, err)
			sim, err := s.Sign(a).Similarity(s.Sign(b))
			require.NoError(t, err)
			d := sim - 1.0/3.0
			sumSq += d * d
		}
		return math.Sqrt(sumSq / runs)
	}

	assert.Less(t, spread(512), spread(16))
}

func TestSigners_EmptySet(t *testing.T) {
	for name, s := range signers(t, 32) {
		t.Run(name, func(t *testing.T) {
			sig := s.Sign(nil)
			assert.True(t, sig.IsEmpty())
			assert.Equal(t, 32, sig.Len())
			for _, v := range sig.Values() {
				assert.Equal(t, uint64(math.MaxUint64), v)
			}
			assert.False(t, s.Sign([]string{"x"}).IsEmpty())
		})
	}
}

func TestSignature_Incomparable(t *testing.T) {
	s := signers(t, 64)
	mh := s["minhash"].Sign([]string{"a"})
	fill := s["fill"].Sign([]string{"a"})

	_, err := mh.Similarity(fill)
	assert.ErrorIs(t, err, ErrIncomparable)

	other, err := NewMinHasher(64, 12345)
	require.NoError(t, err)
	_, err = mh.Similarity(other.Sign([]string{"a"}))
	assert.ErrorIs(t, err, ErrIncomparable)

	shorter, err := NewMinHasher(32, mh.Family().Seeds[0])
	require.NoError(t, err)
	_, err = mh.Similarity(shorter.Sign([]string{"a"}))
	assert.ErrorIs(t, err, ErrIncomparable)
}

func TestSignature_FromValues(t *testing.T) {
	f := Family{Kind: KindMinHash, Seeds: [2]uint64{3}}
	vals := []uint64{1, 2, 3}
	sig := FromValues(f, vals)
	vals[0] = 99

	assert.Equal(t, 3, sig.Len())
	assert.Equal(t, 3, sig.Family().Length)
	assert.Equal(t, uint64(1), sig.At(0))
	assert.Equal(t, []uint64{7, 1, 2, 3}, sig.AppendValues([]uint64{7}))
}

func TestFillSketcher_RoundBound(t *testing.T) {
	fs, err := NewFillSketcher(64, [2]uint64{1, 2})
	require.NoError(t, err)

	// A single token still fills every bin within 2L rounds.
	slots, rounds := fs.fill(fingerprintSet([]string{"only"}))
	assert.LessOrEqual(t, rounds, 128)
	for _, v := range slots {
		assert.NotEqual(t, uint64(math.MaxUint64), v)
	}

	// A large set fills every bin during the hashed rounds.
	_, rounds = fs.fill(fingerprintSet(tokens("big", 2000)))
	assert.Less(t, rounds, 64)
}

func TestFillSketcher_Family(t *testing.T) {
	fs, err := NewFillSketcher(16, [2]uint64{4, 5})
	require.NoError(t, err)
	f := fs.Family()
	assert.Equal(t, KindFill, f.Kind)
	assert.Equal(t, [2]uint64{4, 5}, f.Seeds)
	assert.Equal(t, 16, f.Length)
	assert.Equal(t, f, fs.Sign([]string{"q"}).Family())
	assert.Contains(t, f.String(), "seeds=4,5")
}

func TestSigners_For(t *testing.T) {
	s, err := NewSigners(8, seed.NewGenerator(1))
	require.NoError(t, err)

	mh, ok := s.For(KindMinHash)
	require.True(t, ok)
	assert.Equal(t, KindMinHash, mh.Family().Kind)

	fill, ok := s.For(KindFill)
	require.True(t, ok)
	assert.Equal(t, KindFill, fill.Family().Kind)

	_, ok = s.For(Kind(0))
	assert.False(t, ok)

	// Seeds are drawn MinHash first, then the two fill seeds.
	g := seed.NewGenerator(1)
	want := g.Take(3)
	assert.Equal(t, want[0], mh.Family().Seeds[0])
	assert.Equal(t, [2]uint64{want[1], want[2]}, fill.Family().Seeds)
}
