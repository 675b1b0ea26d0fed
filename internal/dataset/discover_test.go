package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestKeysSkipsReservedAndHiddenEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "alpha"))
	mustMkdir(t, filepath.Join(dir, "beta"))
	mustMkdir(t, filepath.Join(dir, ".hidden"))
	if err := os.WriteFile(filepath.Join(dir, sentinelFile), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := Keys(dir)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"alpha", "beta"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestKeysRespectsDatasetIgnore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "keep"))
	mustMkdir(t, filepath.Join(dir, "skip"))
	if err := os.WriteFile(filepath.Join(dir, ".datasetignore"), []byte("skip\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	keys, err := Keys(dir)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "keep" {
		t.Errorf("Keys = %v, want [keep]", keys)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
}
