package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// journalFile keeps a compressed record of the last few committed
// renders, across all keys. Archive source is small text, so keeping several
// generations costs little and buys a cheap no-op-write check before
// the expensive exclusive-lock commit path, plus crash-recovery
// diagnostics (what was the last successful commit for a key).
const journalFile = "_commit_journal.lz4"

// maxJournalEntries bounds how many past renders are kept in total,
// across all keys.
const maxJournalEntries = 8

// entry is one journaled commit.
type entry struct {
	Key    string `json:"key"`
	Source string `json:"source"`
}

// journal is the decompressed, in-memory form of the file.
type journal struct {
	Entries []entry `json:"entries"`
}

// LoadJournal reads dir's commit journal, returning an empty journal if
// none exists yet.
func LoadJournal(dir string) (*journal, error) {
	path := filepath.Join(dir, journalFile)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &journal{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}

	zr := lz4.NewReader(bytes.NewReader(raw))
	decompressed, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("dataset: decompressing %s: %w", path, err)
	}

	var j journal
	if err := json.Unmarshal(decompressed, &j); err != nil {
		return nil, fmt.Errorf("dataset: parsing %s: %w", path, err)
	}
	return &j, nil
}

// LastSource returns the most recently journaled source for key, and
// whether an entry existed at all.
func (j *journal) LastSource(key string) (string, bool) {
	for i := len(j.Entries) - 1; i >= 0; i-- {
		if j.Entries[i].Key == key {
			return j.Entries[i].Source, true
		}
	}
	return "", false
}

// Record appends a commit for key, trimming to maxJournalEntries total
// entries (oldest first) so the journal never grows unbounded.
func (j *journal) Record(key, source string) {
	j.Entries = append(j.Entries, entry{Key: key, Source: source})
	if len(j.Entries) > maxJournalEntries {
		j.Entries = j.Entries[len(j.Entries)-maxJournalEntries:]
	}
}

// Save compresses and writes the journal back to dir.
func (j *journal) Save(dir string) error {
	raw, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("dataset: encoding journal: %w", err)
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("dataset: compressing journal: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("dataset: closing journal writer: %w", err)
	}

	path := filepath.Join(dir, journalFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("dataset: writing %s: %w", path, err)
	}
	return nil
}
