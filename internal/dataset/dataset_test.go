package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCreateWritesSentinelAndDatasetGo(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	c, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, sentinelFile)); err != nil {
		t.Errorf("missing sentinel: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "dataset.go")); err != nil {
		t.Errorf("missing dataset.go: %v", err)
	}
	if c.Dir != dir {
		t.Errorf("Dir = %q, want %q", c.Dir, dir)
	}
}

func TestOpenRejectsNonDataSetDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Open(dir); err == nil {
		t.Fatal("expected an error opening a plain directory")
	}
}

func TestCommitWritesArchiveAndIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	c, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	source := "package main\n\nvar Value = 42\n"
	if err := c.Commit("mykey", source, "note", nil); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := c.GetSource("mykey")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got != source {
		t.Errorf("GetSource = %q, want %q", got, source)
	}

	meta, err := c.Meta("mykey")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta != "note" {
		t.Errorf("Meta = %q, want %q", meta, "note")
	}

	// Second commit with identical source should be a no-op write but
	// still succeed.
	if err := c.Commit("mykey", source, "note", nil); err != nil {
		t.Fatalf("second Commit: %v", err)
	}
}

func TestKeysListsCommittedArchivesSorted(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	c, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, k := range []string{"zeta", "alpha", "mid"} {
		if err := c.Commit(k, "package main\n\nvar Value = 1\n", "", nil); err != nil {
			t.Fatalf("Commit(%s): %v", k, err)
		}
	}

	keys, err := c.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestPerKeyLockRequiresDirLockHeld(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	c, err := Create(dir)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = c.withKeyLock("somekey", Exclusive, func() error { return nil })
	if err == nil {
		t.Fatal("expected an error taking a per-key lock without the directory lock held")
	}
}
