package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDedupeRequestValidate(t *testing.T) {
	valid := func() *DedupeRequest {
		req := DefaultDedupeRequest()
		req.Paths = []string{"items.json"}
		return req
	}

	tests := []struct {
		name     string
		mutate   func(r *DedupeRequest)
		wantCode string
	}{
		{"defaults", func(r *DedupeRequest) {}, ""},
		{"no paths", func(r *DedupeRequest) { r.Paths = nil }, ErrCodeInvalidInput},
		{"unknown sketch", func(r *DedupeRequest) { r.SketchType = "simhash" }, ErrCodeInvalidInput},
		{"zero num_perm", func(r *DedupeRequest) { r.NumPerm = 0 }, ErrCodeInvalidInput},
		{"threshold zero", func(r *DedupeRequest) { r.Threshold = 0 }, ErrCodeInvalidInput},
		{"threshold one", func(r *DedupeRequest) { r.Threshold = 1 }, ErrCodeInvalidInput},
		{"explicit banding", func(r *DedupeRequest) { r.Bands, r.Rows, r.Threshold = 16, 8, 0 }, ""},
		{"banding mismatch", func(r *DedupeRequest) { r.Bands, r.Rows = 16, 4 }, ErrCodeParamsMismatch},
		{"bands without rows", func(r *DedupeRequest) { r.Bands = 16 }, ErrCodeInvalidInput},
		{"minimum r1", func(r *DedupeRequest) { r.MinimumR1 = 0 }, ErrCodeInvalidInput},
		{"negative weight", func(r *DedupeRequest) { r.FPWeight = -1 }, ErrCodeInvalidInput},
		{"min similarity", func(r *DedupeRequest) { r.MinSimilarity = 1.5 }, ErrCodeInvalidInput},
		{"sort", func(r *DedupeRequest) { r.SortBy = "size" }, ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)
			err := req.Validate()
			if got := ErrorCode(err); got != tt.wantCode {
				t.Errorf("Validate() code = %q, want %q (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestParamsRequestOptions(t *testing.T) {
	req := DefaultParamsRequest()
	req.Amplified = true
	req.MinimumR1 = 3
	req.Workers = 2

	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	opts := req.Options()
	if opts.Threshold != DefaultThreshold || opts.NumPerm != DefaultNumPerm {
		t.Errorf("Options() = %+v, want threshold %v and num_perm %d", opts, DefaultThreshold, DefaultNumPerm)
	}
	if !opts.Amplified || opts.MinR1 != 3 || opts.Workers != 2 || !opts.ExactLength {
		t.Errorf("Options() did not carry request fields: %+v", opts)
	}
}

func TestPrecomputeRequestValidate(t *testing.T) {
	req := &PrecomputeRequest{Thresholds: []float64{0.5}, NumPerms: []int{64}, MinimumR1: 1, CachePath: "p.json"}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	req.Thresholds = append(req.Thresholds, 1.2)
	if err := req.Validate(); ErrorCode(err) != ErrCodeInvalidInput {
		t.Errorf("Validate() = %v, want invalid input", err)
	}
}

func TestErrorCode(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewConfigError("bad config", cause))

	if got := ErrorCode(err); got != ErrCodeConfigError {
		t.Errorf("ErrorCode() = %q, want %q", got, ErrCodeConfigError)
	}
	if !errors.Is(err, cause) {
		t.Error("DomainError should unwrap to its cause")
	}
	if got := ErrorCode(cause); got != "" {
		t.Errorf("ErrorCode(plain) = %q, want empty", got)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, name := range []string{"text", "json", "yaml", "csv"} {
		if f, err := ParseOutputFormat(name); err != nil || string(f) != name {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", name, f, err)
		}
	}
	if f, err := ParseOutputFormat(""); err != nil || f != OutputFormatText {
		t.Errorf("ParseOutputFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseOutputFormat("html"); ErrorCode(err) != ErrCodeUnsupportedFormat {
		t.Errorf("ParseOutputFormat(html) = %v, want unsupported format", err)
	}
}
