// Package ingest decodes item records into token sets.
//
// Input is a JSON array of records or an object with an "items" array.
// Every record yields a Result, so malformed records are reported rather
// than dropped.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrMalformedRecord is returned for records that cannot be decoded.
	ErrMalformedRecord = errors.New("ingest: malformed record")

	// ErrDuplicateID is returned for a record whose id was already loaded.
	ErrDuplicateID = errors.New("ingest: duplicate id")

	// ErrMalformedDocument is returned when the input is neither an array
	// nor an object with an items array.
	ErrMalformedDocument = errors.New("ingest: expected a JSON array or an object with \"items\"")
)

// Record is the wire form of an item. model_words and modelID are accepted
// as aliases of tokens and group.
type Record struct {
	ID         string   `json:"id"`
	Tokens     []string `json:"tokens"`
	ModelWords []string `json:"model_words"`
	Text       string   `json:"text"`
	Group      string   `json:"group"`
	ModelID    string   `json:"modelID"`
}

// Item is a decoded record.
type Item struct {
	ID     string   `json:"id" yaml:"id"`
	Tokens []string `json:"tokens" yaml:"tokens"`
	Group  string   `json:"group,omitempty" yaml:"group,omitempty"`
	Source string   `json:"source,omitempty" yaml:"source,omitempty"`

	// GeneratedID is set when the record carried no id.
	GeneratedID bool `json:"generated_id,omitempty" yaml:"generated_id,omitempty"`
}

// Empty reports whether the item has no tokens.
func (it Item) Empty() bool { return len(it.Tokens) == 0 }

// Result is the outcome of decoding one record: an Item or an error.
type Result struct {
	Item   Item
	Err    error
	Source string
	Index  int
}

// OK reports whether the record decoded into an item.
func (r Result) OK() bool { return r.Err == nil }

// Loader decodes records and tracks ids across inputs so duplicates are
// reported even when they come from different files. It is not safe for
// concurrent use.
type Loader struct {
	seen  map[string]struct{}
	newID func() string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithIDGenerator replaces the generator used for records without an id.
func WithIDGenerator(fn func() string) LoaderOption {
	return func(l *Loader) { l.newID = fn }
}

// NewLoader creates a loader that assigns random UUIDs to records without id.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{seen: make(map[string]struct{}), newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Decode reads every record from r. The error is only set when the input
// as a whole is unreadable; per-record problems are in the results.
func (l *Loader) Decode(r io.Reader, source string) ([]Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", source, err)
	}
	raw, err := splitDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	results := make([]Result, 0, len(raw))
	for i, msg := range raw {
		res := Result{Source: source, Index: i}
		item, err := l.decodeRecord(msg)
		if err != nil {
			res.Err = err
		} else {
			item.Source = source
			res.Item = item
		}
		results = append(results, res)
	}
	return results, nil
}

func splitDocument(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	case '{':
		var doc struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		raw = doc.Items
	default:
		return nil, ErrMalformedDocument
	}
	return raw, nil
}

func (l *Loader) decodeRecord(msg json.RawMessage) (Item, error) {
	var rec Record
	if err := json.Unmarshal(msg, &rec); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	item := Item{ID: strings.TrimSpace(rec.ID), Group: rec.Group}
	if item.Group == "" {
		item.Group = rec.ModelID
	}
	if item.ID == "" {
		item.ID = l.newID()
		item.GeneratedID = true
	}
	if _, dup := l.seen[item.ID]; dup {
		return Item{}, fmt.Errorf("%w: %q", ErrDuplicateID, item.ID)
	}

	switch {
	case rec.Tokens != nil:
		item.Tokens = Dedupe(rec.Tokens)
	case rec.ModelWords != nil:
		item.Tokens = Dedupe(rec.ModelWords)
	default:
		item.Tokens = Tokenize(rec.Text)
	}

	l.seen[item.ID] = struct{}{}
	return item, nil
}

// Dedupe drops empty and repeated tokens, keeping first occurrences.
func Dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Summary counts decode outcomes.
type Summary struct {
	Records  int `json:"records" yaml:"records"`
	Items    int `json:"items" yaml:"items"`
	Failures int `json:"failures" yaml:"failures"`
	Empty    int `json:"empty" yaml:"empty"`
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		s.Records++
		if !r.OK() {
			s.Failures++
			continue
		}
		s.Items++
		if r.Item.Empty() {
			s.Empty++
		}
	}
	return s
}
