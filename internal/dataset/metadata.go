package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/jsonc"
)

// stagingFile is the human-editable metadata staging file operators can
// annotate by hand between commits. Commit folds it into the generated
// dataset.go's _info_dict var; it is never itself part of the external
// contract (only _info_dict is).
const stagingFile = "_info_dict.jsonc"

// LoadStaging reads dir's staging file, returning an empty map if it
// does not exist yet.
func LoadStaging(dir string) (map[string]string, error) {
	path := filepath.Join(dir, stagingFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}

	clean := jsonc.ToJSON(raw)
	var out map[string]string
	if err := json.Unmarshal(clean, &out); err != nil {
		return nil, fmt.Errorf("dataset: parsing %s: %w", path, err)
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

// SaveStaging writes meta back to dir's staging file, keys sorted for a
// stable diff between commits.
func SaveStaging(dir string, meta map[string]string) error {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{', '\n')
	for i, k := range keys {
		line := fmt.Sprintf("  %q: %q", k, meta[k])
		if i < len(keys)-1 {
			line += ","
		}
		buf = append(buf, []byte(line+"\n")...)
	}
	buf = append(buf, '}', '\n')

	path := filepath.Join(dir, stagingFile)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("dataset: writing %s: %w", path, err)
	}
	return nil
}

// RenderInfoDict renders meta as the dataset.go "_info_dict" var body,
// sorted for determinism.
func RenderInfoDict(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := "var _info_dict = map[string]string{\n"
	for _, k := range keys {
		out += fmt.Sprintf("\t%q: %q,\n", k, meta[k])
	}
	out += "}\n"
	return out
}
