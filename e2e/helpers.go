package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// buildSimdupBinary builds the CLI into a temporary directory
func buildSimdupBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "simdup")

	// Build from the project root, one level up from the e2e directory
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/simdup")
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("Failed to get project root: %v", err)
	}
	cmd.Dir = projectRoot

	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build simdup binary: %v\n%s", err, out)
	}
	return binaryPath
}

// writeCorpus writes groups of near-duplicate records to dir/name. Every
// group holds two records of 30 tokens that differ in two tokens, and
// groups share no tokens with each other.
func writeCorpus(t *testing.T, dir, name string, groups int) {
	t.Helper()

	var records []map[string]interface{}
	for g := 0; g < groups; g++ {
		base := make([]string, 30)
		for i := range base {
			base[i] = fmt.Sprintf("g%dw%d", g, i)
		}
		variant := append([]string(nil), base[:28]...)
		variant = append(variant, fmt.Sprintf("g%dx0", g), fmt.Sprintf("g%dx1", g))

		label := fmt.Sprintf("model-%d", g)
		records = append(records,
			map[string]interface{}{"id": fmt.Sprintf("%d-a", g), "tokens": base, "group": label},
			map[string]interface{}{"id": fmt.Sprintf("%d-b", g), "tokens": variant, "group": label},
		)
	}

	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("Failed to encode corpus: %v", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create corpus dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("Failed to write corpus %s: %v", name, err)
	}
}
