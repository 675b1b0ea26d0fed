// Package pkgwriter lays a rendered archive out on disk as an
// importable Go package, in either of two layouts, and builds the
// sidecar-loader boilerplate the emitted source needs when any array
// was partitioned out of line. A generated artifact always travels
// with its sidecar directory; for the package layout the directory
// itself is the importable unit.
package pkgwriter

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout selects how the generated package is laid out on disk.
type Layout int

const (
	// SingleFile writes <name>.go directly into Dir, with a sibling
	// <name>_arrays/ sidecar directory.
	SingleFile Layout = iota
	// PackageDir writes Dir/<name>/archive.go, with Dir/<name>/_arrays/.
	PackageDir
)

// Options describes where and how to write a rendered archive.
type Options struct {
	// Name is both the Go package name and, for SingleFile, the file
	// stem.
	Name   string
	Dir    string
	Layout Layout
}

// SourcePath returns the path the rendered source file will be written
// to for opts, without writing anything.
func SourcePath(opts Options) string {
	switch opts.Layout {
	case PackageDir:
		return filepath.Join(opts.Dir, opts.Name, "archive.go")
	default:
		return filepath.Join(opts.Dir, opts.Name+".go")
	}
}

// ArraysDir returns the absolute sidecar directory for opts, and the
// relative path literal the generated loader boilerplate should use to
// find it from the source file's own directory — baked in as a string
// constant at generation time, since a compiled Go package has no
// __file__-style introspection to resolve the path at import time the
// way a Python module would.
func ArraysDir(opts Options) (absolute, relativeLiteral string) {
	switch opts.Layout {
	case PackageDir:
		return filepath.Join(opts.Dir, opts.Name, "_arrays"), "./_arrays"
	default:
		return filepath.Join(opts.Dir, opts.Name+"_arrays"), "./" + opts.Name + "_arrays"
	}
}

// LoaderExpr builds the sidecar.MustLoad(...) call the emitter embeds
// as the ambient _arrays variable's initializer.
func LoaderExpr(relDir string, backend string) string {
	return fmt.Sprintf("sidecar.MustLoad(%q, sidecar.%s)", relDir, backend)
}

// Write creates opts's directory structure and writes source to the
// path SourcePath(opts) names, returning that path.
func Write(opts Options, source string) (string, error) {
	path := SourcePath(opts)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("pkgwriter: creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("pkgwriter: writing %s: %w", path, err)
	}
	return path, nil
}
