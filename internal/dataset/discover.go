package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// reservedEntries are DataSet-internal names never treated as keys.
var reservedEntries = map[string]bool{
	sentinelFile:     true,
	"dataset.go":     true,
	stagingFile:      true,
	journalFile:      true,
	".datasetignore": true,
}

// Keys lists the per-key archive package directories immediately under
// dir, sorted for deterministic iteration. A ".datasetignore" file, if
// present, is read with gitignore syntax so operators can stage a
// key's directory before it is ready to be discovered.
func Keys(dir string) ([]string, error) {
	var gi *ignore.GitIgnore
	if data, err := os.ReadFile(filepath.Join(dir, ".datasetignore")); err == nil {
		lines := strings.Split(string(data), "\n")
		gi = ignore.CompileIgnoreLines(lines...)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || reservedEntries[name] {
			continue
		}
		if gi != nil && gi.MatchesPath(name) {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}
