package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phobologic/persist/internal/dataset"
	"github.com/phobologic/persist/internal/emit"
	"github.com/phobologic/persist/internal/pkgwriter"
)

// DataSet manages a directory of single-item archives, one per key,
// plus a metadata dict and an advisory lock so concurrent writers
// serialize their commits. The on-disk layout is the external contract:
// a sentinel file marking the directory, a generated dataset.go
// defining _info_dict, one archive package directory per key, and a
// per-key _arrays/ sidecar subdirectory when arrays were partitioned.
type DataSet struct {
	ctl  *dataset.Controller
	opts []Option
}

// runStub is written next to each key's archive.go so "go run" can
// evaluate the key's package directly: the archive binds Value, the
// stub prints it. Stdlib-only on purpose — a key whose archive needs
// no third-party imports stays runnable with nothing installed.
const runStub = `package main

import "fmt"

func main() {
	fmt.Printf("%#v\n", Value)
}
`

// CreateDataSet initializes dir as a new DataSet. The given archive
// options apply to every subsequent Set on this handle.
func CreateDataSet(dir string, opts ...Option) (*DataSet, error) {
	ctl, err := dataset.Create(dir)
	if err != nil {
		return nil, err
	}
	return &DataSet{ctl: ctl, opts: opts}, nil
}

// OpenDataSet attaches to an existing DataSet directory.
func OpenDataSet(dir string, opts ...Option) (*DataSet, error) {
	ctl, err := dataset.Open(dir)
	if err != nil {
		return nil, err
	}
	return &DataSet{ctl: ctl, opts: opts}, nil
}

// SetLockTimeout overrides how long lock acquisition waits before
// failing with a Busy error.
func (d *DataSet) SetLockTimeout(t time.Duration) {
	d.ctl.LockTimeout = t
}

// Dir returns the DataSet's directory.
func (d *DataSet) Dir() string { return d.ctl.Dir }

// Set commits value under key: the value is rendered as a single-item
// archive package, written together with its run stub, module file and
// array sidecar under an exclusive lock, and published atomically. meta,
// when non-empty, is recorded for the key and folded into _info_dict.
func (d *DataSet) Set(key string, value any, meta string) error {
	if !defaultNamePattern.MatchString(key) {
		return fmt.Errorf("persist: DataSet key %q is not a valid identifier", key)
	}

	a := New(append([]Option{WithSingleItemMode(true)}, d.opts...)...)
	if err := a.Insert(key, value); err != nil {
		return err
	}
	if err := a.ensurePlan(); err != nil {
		return err
	}

	eopts := emit.Options{
		PackageName: "main",
		DataName:    a.cfg.dataName,
		SingleItem:  true,
	}
	if a.store.Len() > 0 {
		eopts.SidecarKeys = a.store.Keys()
		eopts.LoaderExpr = pkgwriter.LoaderExpr("./_arrays", backendToken(a.cfg.backend))
	}
	source, err := emit.Emit(a.plan, eopts)
	if err != nil {
		return err
	}

	writeAux := func(keyDir string) error {
		if a.store.Len() > 0 {
			if err := a.store.Save(filepath.Join(keyDir, "_arrays"), a.cfg.backend); err != nil {
				return err
			}
		}
		if err := os.WriteFile(filepath.Join(keyDir, "main.go"), []byte(runStub), 0o644); err != nil {
			return err
		}
		mod := "module " + key + "\n\ngo 1.25.0\n"
		return os.WriteFile(filepath.Join(keyDir, "go.mod"), []byte(mod), 0o644)
	}

	return d.ctl.Commit(key, source, meta, writeAux)
}

// Get evaluates key's archive by running its package as a short-lived
// subprocess and returns the raw stdout bytes. Go has no dynamic
// import, so this is the practical substitute for loading a stored
// value back into a running process; callers wanting to compile the
// archive into their own program use GetSource instead. A key whose
// archive pulls in non-stdlib imports cannot be run standalone and
// returns an error here.
func (d *DataSet) Get(ctx context.Context, key string) ([]byte, error) {
	return d.ctl.Get(ctx, key)
}

// GetSource returns key's rendered archive source without evaluating it.
func (d *DataSet) GetSource(key string) (string, error) {
	return d.ctl.GetSource(key)
}

// Meta returns key's metadata annotation. It reads only the metadata
// store; no array payload is touched.
func (d *DataSet) Meta(key string) (string, error) {
	return d.ctl.Meta(key)
}

// Keys lists the DataSet's committed keys, sorted.
func (d *DataSet) Keys() ([]string, error) {
	return d.ctl.Keys()
}
