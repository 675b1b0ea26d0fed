package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/persist/ndarray"
)

func TestDataSetSetAndGetSource(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	ds, err := CreateDataSet(dir)
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}

	if err := ds.Set("a", []int{1, 2, 3}, "three ints"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	src, err := ds.GetSource("a")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if !strings.Contains(src, "package main") {
		t.Errorf("archive should be a runnable package:\n%s", src)
	}
	if !strings.Contains(src, "var Value = ") {
		t.Errorf("archive should bind Value:\n%s", src)
	}

	meta, err := ds.Meta("a")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta != "three ints" {
		t.Errorf("Meta = %q, want %q", meta, "three ints")
	}
}

func TestDataSetKeyDirectoryLayout(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	ds, err := CreateDataSet(dir)
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}
	if err := ds.Set("x", 42, ""); err != nil {
		t.Fatalf("Set: %v", err)
	}

	for _, f := range []string{"archive.go", "main.go", "go.mod"} {
		if _, err := os.Stat(filepath.Join(dir, "x", f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "_this_dir_is_a_DataSet")); err != nil {
		t.Errorf("missing sentinel: %v", err)
	}
}

func TestDataSetSidecarWrittenPerKey(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	ds, err := CreateDataSet(dir, WithArrayThreshold(5))
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}

	big := ndarray.NewFloat64([]int{8}, []float64{0, 1, 2, 3, 4, 5, 6, 7})
	if err := ds.Set("arr", big, "a big one"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "arr", "_arrays", "array_0.npy")); err != nil {
		t.Errorf("missing per-key sidecar file: %v", err)
	}
	src, err := ds.GetSource("arr")
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if !strings.Contains(src, `sidecar.MustLoad("./_arrays"`) {
		t.Errorf("archive should declare the sidecar loader:\n%s", src)
	}
}

func TestDataSetMetadataFoldsIntoInfoDict(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	ds, err := CreateDataSet(dir)
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}
	if err := ds.Set("a", 1, "meta"); err != nil {
		t.Fatalf("Set(a): %v", err)
	}
	if err := ds.Set("x", 2, "meta2"); err != nil {
		t.Fatalf("Set(x): %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "dataset.go"))
	if err != nil {
		t.Fatalf("reading dataset.go: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "_info_dict") {
		t.Errorf("dataset.go should define _info_dict:\n%s", got)
	}
	for _, want := range []string{`"a": "meta"`, `"x": "meta2"`} {
		if !strings.Contains(got, want) {
			t.Errorf("dataset.go missing %s:\n%s", want, got)
		}
	}

	// Reopened read-only, metadata is immediately available without
	// touching any key archive.
	reopened, err := OpenDataSet(dir)
	if err != nil {
		t.Fatalf("OpenDataSet: %v", err)
	}
	meta, err := reopened.Meta("x")
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if meta != "meta2" {
		t.Errorf("Meta = %q, want %q", meta, "meta2")
	}
}

func TestDataSetRejectsInvalidKey(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	ds, err := CreateDataSet(dir)
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}
	if err := ds.Set("not a key", 1, ""); err == nil {
		t.Error("Set should reject a non-identifier key")
	}
	if err := ds.Set("_reserved", 1, ""); err == nil {
		t.Error("Set should reject a reserved-prefix key")
	}
}

func TestDataSetKeysSorted(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "ds")
	ds, err := CreateDataSet(dir)
	if err != nil {
		t.Fatalf("CreateDataSet: %v", err)
	}
	for _, k := range []string{"zeta", "alpha", "mid"} {
		if err := ds.Set(k, 1, ""); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	keys, err := ds.Keys()
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
