package persist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phobologic/persist/internal/emit"
	"github.com/phobologic/persist/internal/graphbuild"
	"github.com/phobologic/persist/internal/pkgwriter"
	"github.com/phobologic/persist/internal/reduce"
	"github.com/phobologic/persist/persisterr"
	"github.com/phobologic/persist/represent"
	"github.com/phobologic/persist/sidecar"
)

// Archive is a named collection of top-level bindings rendered as one
// Go source artifact. Values are inserted under user-chosen names, then
// rendered (or saved) exactly once the full pipeline has run: represent
// → graph build → reduce → emit. An archive accepts inserts until the
// pipeline first succeeds (in Render, Save or SaveData), after which it
// is sealed; repeated renders
// return byte-identical output.
//
// An Archive is not safe for concurrent use.
type Archive struct {
	cfg      config
	registry *represent.Registry

	bindings []binding
	names    map[string]bool

	// Filled in by the first successful render; nil until then. A
	// failed render leaves all three untouched, so the archive stays in
	// its pre-render state and can be retried after the offending entry
	// is fixed.
	plan     *reduce.Plan
	store    *sidecar.Store
	rendered string
}

type binding struct {
	name  string
	value any
}

// New returns an empty archive configured by opts.
func New(opts ...Option) *Archive {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Archive{
		cfg:      cfg,
		registry: represent.NewRegistry(),
		names:    make(map[string]bool),
	}
}

// Registry exposes the archive's representation registry so callers can
// install custom handlers ahead of the built-in chain.
func (a *Archive) Registry() *represent.Registry { return a.registry }

// Insert records value under name. The name must match the allowed
// pattern, must not start with "_" (reserved for generated
// intermediates and the ambient array lookup), and must not collide
// with a prior insert. With WithCheckOnInsert, representation of the
// whole value graph is attempted eagerly so a bad value fails here
// instead of at render time.
func (a *Archive) Insert(name string, value any) error {
	if a.plan != nil {
		return fmt.Errorf("persist: archive is sealed after its first render")
	}
	if err := a.checkName(name); err != nil {
		return err
	}
	if a.cfg.checkOnInsert {
		env := a.env(sidecar.NewStore())
		if _, err := graphbuild.Build([]graphbuild.Root{{Name: name, Value: value}}, env); err != nil {
			return err
		}
	}
	a.names[name] = true
	a.bindings = append(a.bindings, binding{name: name, value: value})
	return nil
}

// InsertAll inserts every entry of values, in sorted name order so the
// archive's insertion sequence is deterministic regardless of map
// iteration. It stops at the first failing name.
func (a *Archive) InsertAll(values map[string]any) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := a.Insert(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// Len reports how many top-level bindings have been inserted.
func (a *Archive) Len() int { return len(a.bindings) }

func (a *Archive) checkName(name string) error {
	if strings.HasPrefix(name, "_") {
		return &persisterr.NameCollisionError{Name: name}
	}
	if name == a.cfg.dataName {
		return &persisterr.NameCollisionError{Name: name}
	}
	if !a.cfg.namePattern.MatchString(name) {
		return fmt.Errorf("persist: name %q does not match the allowed pattern %s", name, a.cfg.namePattern)
	}
	if a.names[name] {
		return &persisterr.NameCollisionError{Name: name}
	}
	return nil
}

func (a *Archive) env(store *sidecar.Store) *represent.Env {
	return &represent.Env{
		Registry:       a.registry,
		ArrayThreshold: a.cfg.arrayThreshold,
		Sidecar:        storeSink{store},
		DataName:       a.cfg.dataName,
	}
}

// storeSink bridges sidecar.Store to represent.ArraySink: the two
// packages declare structurally identical Array interfaces but neither
// imports the other, so the facade converts at the boundary.
type storeSink struct {
	store *sidecar.Store
}

func (s storeSink) Put(a represent.Array) string { return s.store.Put(a) }

// ensurePlan runs represent → build → reduce once and caches the result.
// Nothing on the archive is mutated until the whole pipeline succeeds.
func (a *Archive) ensurePlan() error {
	if a.plan != nil {
		return nil
	}
	if len(a.bindings) == 0 {
		return fmt.Errorf("persist: archive is empty")
	}

	store := sidecar.NewStore()
	store.Compress = a.cfg.compress
	env := a.env(store)

	roots := make([]graphbuild.Root, len(a.bindings))
	names := make([]string, len(a.bindings))
	for i, b := range a.bindings {
		roots[i] = graphbuild.Root{Name: b.name, Value: b.value}
		names[i] = b.name
	}

	g, err := graphbuild.Build(roots, env)
	if err != nil {
		return err
	}
	plan, err := reduce.Reduce(g, names, reduce.Options{
		Scoped:        a.cfg.scoped,
		RobustReplace: a.cfg.robustReplace,
	})
	if err != nil {
		return err
	}

	a.plan = plan
	a.store = store
	return nil
}

// singleItemActive reports whether single-item emission applies: the
// option is on and exactly one binding exists.
func (a *Archive) singleItemActive() bool {
	return a.cfg.singleItem && len(a.bindings) == 1
}

// Render returns the archive's source text under the package name
// "archive", without any sidecar-loader declaration: a caller embedding
// the source supplies the ambient array lookup itself. Rendering is
// idempotent; the first success seals the archive against further
// inserts.
func (a *Archive) Render() (string, error) {
	if a.rendered != "" {
		return a.rendered, nil
	}
	if err := a.ensurePlan(); err != nil {
		return "", err
	}
	src, err := emit.Emit(a.plan, emit.Options{
		PackageName: "archive",
		DataName:    a.cfg.dataName,
		SingleItem:  a.singleItemActive(),
	})
	if err != nil {
		return "", err
	}
	a.rendered = src
	return src, nil
}

// String implements fmt.Stringer over Render. A render failure is
// reported in the returned text, since Stringer has no error channel.
func (a *Archive) String() string {
	src, err := a.Render()
	if err != nil {
		return fmt.Sprintf("persist: render failed: %v", err)
	}
	return src
}

// Save renders the archive and writes it under dir as an importable Go
// package named name: a single <name>.go file with a sibling
// <name>_arrays/ sidecar directory, or (asPackage) a <name>/archive.go
// directory with <name>/_arrays/. When any array was partitioned out,
// the emitted source carries a loader declaration binding the ambient
// lookup to the sidecar directory's contents.
func (a *Archive) Save(dir, name string, asPackage bool) error {
	if !a.cfg.namePattern.MatchString(name) {
		return fmt.Errorf("persist: package name %q does not match the allowed pattern %s", name, a.cfg.namePattern)
	}
	if err := a.ensurePlan(); err != nil {
		return err
	}

	layout := pkgwriter.SingleFile
	if asPackage {
		layout = pkgwriter.PackageDir
	}
	wopts := pkgwriter.Options{Name: name, Dir: dir, Layout: layout}

	eopts := emit.Options{
		PackageName: name,
		DataName:    a.cfg.dataName,
		SingleItem:  a.singleItemActive(),
	}
	var arraysDir string
	if a.store.Len() > 0 {
		abs, rel := pkgwriter.ArraysDir(wopts)
		arraysDir = abs
		eopts.SidecarKeys = a.store.Keys()
		eopts.LoaderExpr = pkgwriter.LoaderExpr(rel, backendToken(a.cfg.backend))
	}

	src, err := emit.Emit(a.plan, eopts)
	if err != nil {
		return err
	}
	if _, err := pkgwriter.Write(wopts, src); err != nil {
		return err
	}
	if a.store.Len() > 0 {
		if err := a.store.Save(arraysDir, a.cfg.backend); err != nil {
			return err
		}
	}
	return nil
}

// SaveData writes only the array sidecar to dir, without emitting any
// source. The render pipeline still runs (partitioning happens during
// representation), but its text output is discarded.
func (a *Archive) SaveData(dir string) error {
	if err := a.ensurePlan(); err != nil {
		return err
	}
	return a.store.Save(dir, a.cfg.backend)
}

// backendToken renders a backend as the sidecar package constant the
// generated loader expression references.
func backendToken(b sidecar.Backend) string {
	if b == sidecar.HDF5 {
		return "HDF5"
	}
	return "NPY"
}
