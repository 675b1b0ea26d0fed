package persist

import (
	"math"
	"regexp"

	"github.com/phobologic/persist/sidecar"
)

// defaultNamePattern accepts ordinary Go identifiers. Names starting
// with "_" are rejected separately regardless of pattern: the underscore
// prefix is reserved for generated intermediates and the ambient
// sidecar lookup.
var defaultNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type config struct {
	scoped         bool
	arrayThreshold int
	dataName       string
	robustReplace  bool
	singleItem     bool
	checkOnInsert  bool
	namePattern    *regexp.Regexp
	backend        sidecar.Backend
	compress       bool
}

func defaultConfig() config {
	return config{
		scoped: true,
		// Arrays inline by default; WithArrayThreshold opts into the
		// sidecar.
		arrayThreshold: math.MaxInt,
		dataName:       "_arrays",
		namePattern:    defaultNamePattern,
		backend:        sidecar.NPY,
	}
}

// Option configures a new Archive.
type Option func(*config)

// WithScoped selects scoped (true, the default) or flat (false)
// emission. Scoped keeps every node its own declaration; flat enables
// single-use inlining so intermediates fold into their sole consumer.
func WithScoped(scoped bool) Option {
	return func(c *config) { c.scoped = scoped }
}

// WithArrayThreshold sets the element count at or above which arrays
// are partitioned to the sidecar instead of rendered inline. The
// default is effectively infinite: everything inlines until a caller
// opts in.
func WithArrayThreshold(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = math.MaxInt
		}
		c.arrayThreshold = n
	}
}

// WithDataName renames the ambient sidecar-lookup variable from its
// default "_arrays".
func WithDataName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.dataName = name
		}
	}
}

// WithRobustReplace selects the syntax-tree substitution strategy over
// the default word-boundary textual one. It is the only strategy safe
// when an expression's string or rune literals contain
// identifier-shaped substrings.
func WithRobustReplace(on bool) Option {
	return func(c *config) { c.robustReplace = on }
}

// WithSingleItemMode makes a one-binding archive render its value under
// the exported name Value, so a consumer importing the generated
// package reaches the stored object directly rather than through the
// inserted name. Archives with more than one binding ignore it.
func WithSingleItemMode(on bool) Option {
	return func(c *config) { c.singleItem = on }
}

// WithCheckOnInsert makes Insert eagerly attempt representation of the
// value so an unrepresentable insert fails immediately instead of at
// render time.
func WithCheckOnInsert(on bool) Option {
	return func(c *config) { c.checkOnInsert = on }
}

// WithAllowedNamePattern overrides the identifier pattern user-chosen
// top-level names must match.
func WithAllowedNamePattern(re *regexp.Regexp) Option {
	return func(c *config) {
		if re != nil {
			c.namePattern = re
		}
	}
}

// WithBackend selects the sidecar on-disk format, sidecar.NPY (default)
// or sidecar.HDF5.
func WithBackend(b sidecar.Backend) Option {
	return func(c *config) { c.backend = b }
}

// WithCompression wraps each NPY sidecar payload in a zstd frame on
// save. Off by default, preserving bit-exact .npy files on disk.
func WithCompression(on bool) Option {
	return func(c *config) { c.compress = on }
}
