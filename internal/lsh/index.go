package lsh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/cespare/xxhash/v2"

	"github.com/ludo-technologies/simdup/internal/sketch"
)

var (
	// ErrIncomparable is returned when a signature does not belong to the
	// family fixed by the first insertion.
	ErrIncomparable = errors.New("lsh: signature is not comparable with the index")

	// ErrDuplicateID is returned when an id is re-inserted with a different signature.
	ErrDuplicateID = errors.New("lsh: id already indexed with a different signature")

	// ErrEmptyID is returned for an empty item id.
	ErrEmptyID = errors.New("lsh: empty id")
)

// Pair is an unordered candidate pair with A < B.
type Pair struct {
	A string `json:"a" yaml:"a"`
	B string `json:"b" yaml:"b"`
}

// NewPair orders the ids of a pair.
func NewPair(x, y string) Pair {
	if y < x {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// Index buckets signatures band by band and records, per unit, the item
// pairs that share a bucket in at least one of the unit's bands.
//
// Items are numbered in insertion order; a pair of ordinals lo<hi is stored
// as lo<<32|hi in 64-bit bitmaps so group AND and final OR are bitmap
// operations.
type Index struct {
	mu     sync.RWMutex
	params Params
	length int

	family    sketch.Family
	hasFamily bool

	ids       []string
	ordinals  map[string]uint32
	sigs      []sketch.Signature
	empty     int
	buckets   []map[uint64][]uint32 // per band, indexed by bandIndex
	unitPairs []*roaring64.Bitmap   // per unit, indexed by g*r2+u
	keyBuf    []byte
}

// NewIndex creates an index for signatures of length slots.
func NewIndex(params Params, length int) (*Index, error) {
	if err := params.Validate(length); err != nil {
		return nil, err
	}
	bands := params.Bands[0] * params.Rows[1] * params.Bands[1]
	units := params.Rows[1] * params.Bands[1]

	idx := &Index{
		params:    params,
		length:    length,
		ordinals:  make(map[string]uint32),
		buckets:   make([]map[uint64][]uint32, bands),
		unitPairs: make([]*roaring64.Bitmap, units),
		keyBuf:    make([]byte, 0, params.Rows[0]*8),
	}
	for i := range idx.buckets {
		idx.buckets[i] = make(map[uint64][]uint32)
	}
	for i := range idx.unitPairs {
		idx.unitPairs[i] = roaring64.New()
	}
	return idx, nil
}

// Params returns the banding configuration.
func (idx *Index) Params() Params { return idx.params }

// Insert adds a signature under id.
//
// The first signature fixes the family every later one must share.
// Re-inserting an id with an identical signature does nothing. Empty
// signatures are stored but never bucketed, so items without tokens do
// not pair with each other.
func (idx *Index) Insert(id string, sig sketch.Signature) error {
	if id == "" {
		return ErrEmptyID
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkFamily(sig); err != nil {
		return err
	}
	if ord, ok := idx.ordinals[id]; ok {
		if idx.sigs[ord].Equal(sig) {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}

	if !idx.hasFamily {
		idx.family = sig.Family()
		idx.hasFamily = true
	}

	ord := uint32(len(idx.ids))
	idx.ids = append(idx.ids, id)
	idx.sigs = append(idx.sigs, sig)
	idx.ordinals[id] = ord

	if sig.IsEmpty() {
		idx.empty++
		return nil
	}

	for unit := range idx.unitPairs {
		for k := 0; k < idx.params.Bands[0]; k++ {
			band := unit*idx.params.Bands[0] + k
			key := idx.bandKey(sig, band)
			members := idx.buckets[band][key]
			for _, other := range members {
				idx.unitPairs[unit].Add(pairKey(other, ord))
			}
			idx.buckets[band][key] = append(members, ord)
		}
	}
	return nil
}

func (idx *Index) checkFamily(sig sketch.Signature) error {
	if sig.Len() != idx.length {
		return fmt.Errorf("%w: signature has %d slots, index expects %d", ErrIncomparable, sig.Len(), idx.length)
	}
	if idx.hasFamily && sig.Family() != idx.family {
		return fmt.Errorf("%w: %s vs %s", ErrIncomparable, sig.Family(), idx.family)
	}
	return nil
}

// bandKey hashes the rows of band. Band b covers slots [b*r1, (b+1)*r1),
// which is ((g*r2+u)*b1+k)*r1+j for band b = (g*r2+u)*b1+k.
func (idx *Index) bandKey(sig sketch.Signature, band int) uint64 {
	r1 := idx.params.Rows[0]
	buf := idx.keyBuf[:0]
	for j := 0; j < r1; j++ {
		buf = binary.LittleEndian.AppendUint64(buf, sig.At(band*r1+j))
	}
	idx.keyBuf = buf
	return xxhash.Sum64(buf)
}

func pairKey(a, b uint32) uint64 {
	if b < a {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// candidateKeys ORs, over groups, the AND of the group's unit bitmaps.
func (idx *Index) candidateKeys() *roaring64.Bitmap {
	r2 := idx.params.Rows[1]
	result := roaring64.New()
	for g := 0; g < idx.params.Bands[1]; g++ {
		group := idx.unitPairs[g*r2].Clone()
		for u := 1; u < r2 && !group.IsEmpty(); u++ {
			group.And(idx.unitPairs[g*r2+u])
		}
		result.Or(group)
	}
	return result
}

// CandidatePairs returns every candidate pair sorted by (A, B). The result
// does not depend on insertion order and never holds a self-pair.
func (idx *Index) CandidatePairs() []Pair {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	keys := idx.candidateKeys()
	pairs := make([]Pair, 0, keys.GetCardinality())
	it := keys.Iterator()
	for it.HasNext() {
		k := it.Next()
		lo, hi := uint32(k>>32), uint32(k)
		if lo == hi {
			continue
		}
		pairs = append(pairs, NewPair(idx.ids[lo], idx.ids[hi]))
	}
	sortPairs(pairs)
	return pairs
}

// NumCandidates returns the number of candidate pairs.
func (idx *Index) NumCandidates() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return int(idx.candidateKeys().GetCardinality())
}

// Query returns the ids that would pair with sig, sorted. The signature
// itself is not inserted.
func (idx *Index) Query(sig sketch.Signature) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.checkFamily(sig); err != nil {
		return nil, err
	}
	if sig.IsEmpty() {
		return []string{}, nil
	}

	b1, r2 := idx.params.Bands[0], idx.params.Rows[1]
	key := make([]byte, 0, idx.params.Rows[0]*8)
	result := roaring.New()
	for g := 0; g < idx.params.Bands[1]; g++ {
		var group *roaring.Bitmap
		for u := 0; u < r2; u++ {
			unit := roaring.New()
			for k := 0; k < b1; k++ {
				band := (g*r2+u)*b1 + k
				key = key[:0]
				for j := 0; j < idx.params.Rows[0]; j++ {
					key = binary.LittleEndian.AppendUint64(key, sig.At(band*idx.params.Rows[0]+j))
				}
				unit.AddMany(idx.buckets[band][xxhash.Sum64(key)])
			}
			if group == nil {
				group = unit
			} else {
				group.And(unit)
			}
			if group.IsEmpty() {
				break
			}
		}
		result.Or(group)
	}

	ids := make([]string, 0, result.GetCardinality())
	it := result.Iterator()
	for it.HasNext() {
		ids = append(ids, idx.ids[it.Next()])
	}
	sort.Strings(ids)
	return ids, nil
}

// Signature returns the signature stored for id.
func (idx *Index) Signature(id string) (sketch.Signature, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ord, ok := idx.ordinals[id]
	if !ok {
		return sketch.Signature{}, false
	}
	return idx.sigs[ord], true
}

// IDs returns the indexed ids in insertion order.
func (idx *Index) IDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return slices.Clone(idx.ids)
}

// Size returns the number of indexed items.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Stats describes the state of an index.
type Stats struct {
	Items          int     `json:"items" yaml:"items"`
	EmptyItems     int     `json:"empty_items" yaml:"empty_items"`
	Bands          int     `json:"bands" yaml:"bands"`
	Buckets        int     `json:"buckets" yaml:"buckets"`
	MaxBucketSize  int     `json:"max_bucket_size" yaml:"max_bucket_size"`
	AvgBucketSize  float64 `json:"avg_bucket_size" yaml:"avg_bucket_size"`
	CandidatePairs int     `json:"candidate_pairs" yaml:"candidate_pairs"`
	Params         Params  `json:"params" yaml:"params"`
}

// Stats computes bucket statistics.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	st := Stats{
		Items:          len(idx.ids),
		EmptyItems:     idx.empty,
		Bands:          len(idx.buckets),
		Params:         idx.params,
		CandidatePairs: int(idx.candidateKeys().GetCardinality()),
	}
	total := 0
	for _, band := range idx.buckets {
		for _, members := range band {
			st.Buckets++
			total += len(members)
			st.MaxBucketSize = max(st.MaxBucketSize, len(members))
		}
	}
	if st.Buckets > 0 {
		st.AvgBucketSize = float64(total) / float64(st.Buckets)
	}
	return st
}

func sortPairs(pairs []Pair) {
	slices.SortFunc(pairs, func(x, y Pair) int {
		if c := strings.Compare(x.A, y.A); c != 0 {
			return c
		}
		return strings.Compare(x.B, y.B)
	})
}
