package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWasExplicitlySet(t *testing.T) {
	tests := []struct {
		name     string
		flags    map[string]bool
		flagName string
		want     bool
	}{
		{name: "nil flags map", flags: nil, flagName: "threshold", want: false},
		{name: "empty flags map", flags: map[string]bool{}, flagName: "threshold", want: false},
		{name: "flag not set", flags: map[string]bool{"other": true}, flagName: "threshold", want: false},
		{name: "flag set to true", flags: map[string]bool{"threshold": true}, flagName: "threshold", want: true},
		{name: "flag set to false", flags: map[string]bool{"threshold": false}, flagName: "threshold", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WasExplicitlySet(tt.flags, tt.flagName))
		})
	}
}

func TestMergeHelpers(t *testing.T) {
	flags := map[string]bool{"sketch": true, "num-perm": true, "amplified": true, "threshold": true, "seed": true, "include": true}

	assert.Equal(t, "fill", MergeString("minhash", "fill", "sketch", flags))
	assert.Equal(t, "minhash", MergeString("minhash", "fill", "format", flags))

	assert.Equal(t, 64, MergeInt(128, 64, "num-perm", flags))
	assert.Equal(t, 128, MergeInt(128, 64, "rows", flags))

	assert.True(t, MergeBool(false, true, "amplified", flags))
	assert.False(t, MergeBool(false, true, "exact", flags))

	assert.Equal(t, 0.8, MergeFloat64(0.5, 0.8, "threshold", flags))
	assert.Equal(t, 0.5, MergeFloat64(0.5, 0.8, "fp-weight", flags))

	assert.Equal(t, uint64(42), MergeUint64(1, 42, "seed", flags))
	assert.Equal(t, uint64(1), MergeUint64(1, 42, "other", flags))

	assert.Equal(t, []string{"*.jsonl"}, MergeStringSlice([]string{"**/*.json"}, []string{"*.jsonl"}, "include", flags))
	assert.Equal(t, []string{"**/*.json"}, MergeStringSlice([]string{"**/*.json"}, nil, "include", flags),
		"an empty override keeps the base")
}
