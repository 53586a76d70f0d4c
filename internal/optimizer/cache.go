package optimizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/ludo-technologies/simdup/internal/lsh"
)

// ThresholdTolerance is the distance within which a cached threshold matches.
const ThresholdTolerance = 0.01

// Record is one cached parameter choice. Error, FP and FN are optional;
// weights and minimum r1 are stored when they were not the defaults.
type Record struct {
	Threshold float64    `json:"threshold" yaml:"threshold"`
	NumPerm   int        `json:"num_perm" yaml:"num_perm"`
	Amplified bool       `json:"amplified" yaml:"amplified"`
	Params    lsh.Params `json:"params" yaml:"params"`
	Error     *float64   `json:"error,omitempty" yaml:"error,omitempty"`
	FP        *float64   `json:"fp,omitempty" yaml:"fp,omitempty"`
	FN        *float64   `json:"fn,omitempty" yaml:"fn,omitempty"`
	FPWeight  float64    `json:"fp_weight,omitempty" yaml:"fp_weight,omitempty"`
	FNWeight  float64    `json:"fn_weight,omitempty" yaml:"fn_weight,omitempty"`
	MinR1     int        `json:"minimum_r1,omitempty" yaml:"minimum_r1,omitempty"`
}

// RoundThreshold rounds t to two decimals, the precision cache keys use.
func RoundThreshold(t float64) float64 {
	return math.Round(t*100) / 100
}

func (r Record) matches(threshold float64, numPerm int, amplified bool) bool {
	return r.NumPerm == numPerm && r.Amplified == amplified &&
		math.Abs(r.Threshold-threshold) < ThresholdTolerance
}

// Cache holds parameter records keyed by (threshold, num_perm, amplified).
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	path    string
	records []Record
	dirty   bool
}

// NewCache returns an empty in-memory cache. Save is a no-op until a path
// is set.
func NewCache() *Cache {
	return &Cache{}
}

// LoadCache reads the JSON array at path. A missing file yields an empty
// cache that will be created on Save.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("optimizer: read cache %s: %w", path, err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.records); err != nil {
		return nil, fmt.Errorf("optimizer: parse cache %s: %w", path, err)
	}
	return c, nil
}

// Path returns the backing file, if any.
func (c *Cache) Path() string { return c.path }

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Lookup returns the first record matching num_perm and amplified exactly
// and threshold within ThresholdTolerance.
func (c *Cache) Lookup(threshold float64, numPerm int, amplified bool) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.matches(threshold, numPerm, amplified) {
			return r, true
		}
	}
	return Record{}, false
}

// Store rounds the record's threshold and replaces the matching record, or
// appends it when there is none.
func (c *Cache) Store(rec Record) {
	rec.Threshold = RoundThreshold(rec.Threshold)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
	for i, r := range c.records {
		if r.matches(rec.Threshold, rec.NumPerm, rec.Amplified) {
			c.records[i] = rec
			return
		}
	}
	c.records = append(c.records, rec)
}

// Records returns a copy of the records in file order.
func (c *Cache) Records() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

// Save writes the records to the cache path when they changed. The file is
// replaced atomically.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.path == "" || !c.dirty {
		return nil
	}

	records := c.records
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("optimizer: encode cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("optimizer: create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".params-*.json")
	if err != nil {
		return fmt.Errorf("optimizer: create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("optimizer: write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("optimizer: write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("optimizer: replace cache: %w", err)
	}
	c.dirty = false
	return nil
}

func ptr(v float64) *float64 { return &v }
