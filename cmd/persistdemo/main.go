// persistdemo exercises the persist library from the command line:
// it builds archives from a YAML manifest, renders or saves them, and
// drives a DataSet directory. It is a demonstration harness, not part
// of the library's contract.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/phobologic/persist"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return fmt.Errorf("a subcommand is required")
	}

	switch args[0] {
	case "render":
		return runRender(args[1:], stdout, stderr)
	case "save":
		return runSave(args[1:], stdout, stderr)
	case "dataset":
		return runDataSet(args[1:], stdout, stderr)
	case "init":
		return runInit(args[1:], stdout, stderr)
	case "-V", "--version", "version":
		_, _ = fmt.Fprintf(stdout, "persistdemo %s\n", version)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: persistdemo <subcommand> [flags]

Subcommands:
  render    build an archive from a manifest and print its source
  save      build an archive and write it to disk as a package
  dataset   manage a DataSet directory (init, set, keys, meta, source)
  init      write a persistdemo usage section into a CLAUDE.md file
  version   show version and exit
`)
}

// archiveFlags are the knobs shared by render and save.
type archiveFlags struct {
	manifest  string
	flat      bool
	threshold int
	robust    bool
	backend   string
}

func (f *archiveFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.manifest, "manifest", "m", "", "YAML manifest describing the values to insert")
	fs.BoolVar(&f.flat, "flat", false, "emit flat form instead of the scoped default")
	fs.IntVarP(&f.threshold, "array-threshold", "t", 0, "element count at which arrays are sidecarred (0 = always inline)")
	fs.BoolVar(&f.robust, "robust-replace", false, "use the syntax-tree substitution strategy")
	fs.StringVar(&f.backend, "backend", "npy", "array sidecar backend: npy or hdf5")
}

func (f *archiveFlags) options() ([]persist.Option, error) {
	opts := []persist.Option{
		persist.WithScoped(!f.flat),
		persist.WithRobustReplace(f.robust),
	}
	if f.threshold > 0 {
		opts = append(opts, persist.WithArrayThreshold(f.threshold))
	}
	switch f.backend {
	case "npy":
	case "hdf5":
		opts = append(opts, persist.WithBackend("hdf5"))
	default:
		return nil, fmt.Errorf("unknown backend %q", f.backend)
	}
	return opts, nil
}

// buildArchive loads the manifest and inserts every value it names.
func buildArchive(f *archiveFlags, extra ...persist.Option) (*persist.Archive, error) {
	if f.manifest == "" {
		return nil, fmt.Errorf("a manifest is required (-m)")
	}
	m, err := loadManifest(f.manifest)
	if err != nil {
		return nil, err
	}
	opts, err := f.options()
	if err != nil {
		return nil, err
	}
	a := persist.New(append(opts, extra...)...)
	values, err := m.buildValues()
	if err != nil {
		return nil, err
	}
	if err := a.InsertAll(values); err != nil {
		return nil, err
	}
	return a, nil
}

func runRender(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("persistdemo render", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var flags archiveFlags
	flags.register(fs)
	color := fs.Bool("color", false, "syntax-highlight the emitted source")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := buildArchive(&flags)
	if err != nil {
		return err
	}
	src, err := a.Render()
	if err != nil {
		return err
	}

	if *color {
		return quick.Highlight(stdout, src, "go", "terminal256", "monokai")
	}
	_, err = io.WriteString(stdout, src)
	return err
}

func runSave(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("persistdemo save", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var flags archiveFlags
	flags.register(fs)
	outDir := fs.StringP("out", "o", ".", "directory to write into")
	name := fs.StringP("name", "n", "archive", "package name")
	asPackage := fs.Bool("package", false, "write a package directory instead of a single file")
	singleItem := fs.Bool("single-item", false, "bind a one-value archive under the exported name Value")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var extra []persist.Option
	if *singleItem {
		extra = append(extra, persist.WithSingleItemMode(true))
	}
	a, err := buildArchive(&flags, extra...)
	if err != nil {
		return err
	}
	if err := a.Save(*outDir, *name, *asPackage); err != nil {
		return err
	}

	return reportWritten(*outDir, *name, *asPackage, stdout)
}

// reportWritten prints each written artifact with a human-readable size.
func reportWritten(dir, name string, asPackage bool, stdout io.Writer) error {
	roots := []string{filepath.Join(dir, name+".go"), filepath.Join(dir, name+"_arrays")}
	if asPackage {
		roots = []string{filepath.Join(dir, name)}
	}
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			rel, _ := filepath.Rel(dir, path)
			_, _ = fmt.Fprintf(stdout, "wrote %s (%s)\n", rel, humanize.Bytes(uint64(info.Size())))
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func runDataSet(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("dataset requires an action: init, set, keys, meta, source")
	}

	switch args[0] {
	case "init":
		if len(args) < 2 {
			return fmt.Errorf("dataset init requires a directory")
		}
		ds, err := persist.CreateDataSet(args[1])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "initialized DataSet at %s\n", ds.Dir())
		return nil

	case "set":
		return runDataSetSet(args[1:], stdout, stderr)

	case "keys":
		if len(args) < 2 {
			return fmt.Errorf("dataset keys requires a directory")
		}
		ds, err := persist.OpenDataSet(args[1])
		if err != nil {
			return err
		}
		keys, err := ds.Keys()
		if err != nil {
			return err
		}
		for _, k := range keys {
			_, _ = fmt.Fprintln(stdout, k)
		}
		return nil

	case "meta":
		if len(args) < 3 {
			return fmt.Errorf("dataset meta requires a directory and a key")
		}
		ds, err := persist.OpenDataSet(args[1])
		if err != nil {
			return err
		}
		meta, err := ds.Meta(args[2])
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(stdout, meta)
		return nil

	case "source":
		if len(args) < 3 {
			return fmt.Errorf("dataset source requires a directory and a key")
		}
		ds, err := persist.OpenDataSet(args[1])
		if err != nil {
			return err
		}
		src, err := ds.GetSource(args[2])
		if err != nil {
			return err
		}
		_, err = io.WriteString(stdout, src)
		return err

	default:
		return fmt.Errorf("unknown dataset action %q", args[0])
	}
}

func runDataSetSet(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("persistdemo dataset set", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var flags archiveFlags
	flags.register(fs)
	meta := fs.String("meta", "", "metadata annotation for the key")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("dataset set requires a directory and a key")
	}
	dir, key := fs.Arg(0), fs.Arg(1)

	if flags.manifest == "" {
		return fmt.Errorf("a manifest is required (-m)")
	}
	m, err := loadManifest(flags.manifest)
	if err != nil {
		return err
	}
	values, err := m.buildValues()
	if err != nil {
		return err
	}
	value, ok := values[key]
	if !ok {
		return fmt.Errorf("manifest defines no value named %q", key)
	}

	opts, err := flags.options()
	if err != nil {
		return err
	}
	ds, err := persist.OpenDataSet(dir, opts...)
	if err != nil {
		return err
	}
	if err := ds.Set(key, value, *meta); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stdout, "committed %s\n", key)
	return nil
}
