package pkgwriter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSourcePathSingleFile(t *testing.T) {
	t.Parallel()

	got := SourcePath(Options{Name: "archivepkg", Dir: "/tmp/out", Layout: SingleFile})
	want := filepath.Join("/tmp/out", "archivepkg.go")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSourcePathPackageDir(t *testing.T) {
	t.Parallel()

	got := SourcePath(Options{Name: "archivepkg", Dir: "/tmp/out", Layout: PackageDir})
	want := filepath.Join("/tmp/out", "archivepkg", "archive.go")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestArraysDirRelativeLiterals(t *testing.T) {
	t.Parallel()

	_, relSingle := ArraysDir(Options{Name: "archivepkg", Dir: "/tmp/out", Layout: SingleFile})
	if relSingle != "./archivepkg_arrays" {
		t.Errorf("got %q", relSingle)
	}
	_, relPkg := ArraysDir(Options{Name: "archivepkg", Dir: "/tmp/out", Layout: PackageDir})
	if relPkg != "./_arrays" {
		t.Errorf("got %q", relPkg)
	}
}

func TestWriteSingleFileLayout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := Write(Options{Name: "archivepkg", Dir: dir, Layout: SingleFile}, "package archivepkg\n")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "package archivepkg") {
		t.Errorf("unexpected contents: %s", data)
	}
}

func TestWritePackageDirLayoutCreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := Write(Options{Name: "archivepkg", Dir: dir, Layout: PackageDir}, "package archivepkg\n")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != "archivepkg" {
		t.Errorf("expected archive.go under an archivepkg directory, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("written file missing: %v", err)
	}
}

func TestLoaderExpr(t *testing.T) {
	t.Parallel()

	got := LoaderExpr("./_arrays", "NPY")
	want := `sidecar.MustLoad("./_arrays", sidecar.NPY)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
