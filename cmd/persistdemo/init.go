package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	sentinelStart = "<!-- persistdemo:start -->"
	sentinelEnd   = "<!-- persistdemo:end -->"
)

// runInit implements the `persistdemo init` subcommand, which writes (or
// updates) a persistdemo usage section in a CLAUDE.md file.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("persistdemo init", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: persistdemo init [flags] [path-to-CLAUDE.md]

Write a persistdemo usage section to a CLAUDE.md file. The section is wrapped
in sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	section := generateSection()

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	path := "CLAUDE.md"
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote persistdemo section to %s\n", path)
	return nil
}

// generateSection returns the full sentinel-wrapped persistdemo documentation block.
func generateSection() string {
	body := `## persistdemo — Archive Values as Source Code

Use ` + "`persistdemo`" + ` via the Bash tool to snapshot structured values as
re-executable Go source: the emitted package reconstructs the values when
compiled, with large numeric arrays stored out-of-band next to it.

**Availability:** Check with ` + "`persistdemo version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
persistdemo render -m values.yaml            # print the archive source
persistdemo render -m values.yaml --flat     # flat form (inlined intermediates)
persistdemo render -m values.yaml --color    # syntax-highlighted
persistdemo save -m values.yaml -o out -n snap       # write out/snap.go
persistdemo save -m values.yaml -o out -n snap --package  # write out/snap/
persistdemo dataset init ./ds                # create a DataSet directory
persistdemo dataset set ./ds key -m values.yaml --meta "note"
persistdemo dataset keys ./ds
` + "```" + `

**Manifest format:** a ` + "`values:`" + ` map of name to one tagged entry —
` + "`int`" + `, ` + "`float`" + `, ` + "`string`" + `, ` + "`bool`" + `, ` + "`list`" + `, ` + "`map`" + `, ` + "`range`" + `
(start/stop/step), or ` + "`array`" + ` (shape/data).

**Arrays:** pass ` + "`-t N`" + ` to move arrays of N or more elements into a
` + "`.npy`" + ` sidecar directory instead of inlining them as literals.

**All flags:** each subcommand accepts ` + "`--help`" + `.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
