package dataset

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// sentinelFile marks a directory as a DataSet; opening any directory
// without it is rejected.
const sentinelFile = "_this_dir_is_a_DataSet"

// DefaultLockTimeout is used when a caller does not override it.
const DefaultLockTimeout = 30 * time.Second

// Controller manages one on-disk DataSet directory: locking, metadata
// staging, the commit journal, and per-key archive packages. persist.DataSet
// is a thin facade over this type.
type Controller struct {
	Dir         string
	LockTimeout time.Duration
	guard       *guard
}

// Create initializes a new, empty DataSet directory. dir must not
// already exist or must be empty.
func Create(dir string) (*Controller, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("dataset: creating %s: %w", dir, err)
	}
	sentinel := filepath.Join(dir, sentinelFile)
	if _, err := os.Stat(sentinel); err == nil {
		return nil, fmt.Errorf("dataset: %s is already a DataSet", dir)
	}
	if err := os.WriteFile(sentinel, nil, 0o644); err != nil {
		return nil, fmt.Errorf("dataset: writing sentinel in %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dataset.go"), []byte(initialDatasetGo()), 0o644); err != nil {
		return nil, fmt.Errorf("dataset: writing dataset.go in %s: %w", dir, err)
	}
	return Open(dir)
}

// Open attaches to an existing DataSet directory, verifying the
// sentinel file is present.
func Open(dir string) (*Controller, error) {
	sentinel := filepath.Join(dir, sentinelFile)
	if _, err := os.Stat(sentinel); err != nil {
		return nil, fmt.Errorf("dataset: %s is not a DataSet: %w", dir, err)
	}
	return &Controller{Dir: dir, LockTimeout: DefaultLockTimeout, guard: newGuard()}, nil
}

func initialDatasetGo() string {
	return "package dataset\n\n" + RenderInfoDict(map[string]string{})
}

// lockPath is the DataSet-level lock file's path.
func (c *Controller) lockPath() string {
	return filepath.Join(c.Dir, ".dataset.lock")
}

// keyLockPath is a per-key lock file's path.
func (c *Controller) keyLockPath(key string) string {
	return filepath.Join(c.Dir, key, ".key.lock")
}

// withDirLock runs fn while holding the DataSet-level lock of the given
// kind, releasing it (and the lock-ordering guard) afterward.
func (c *Controller) withDirLock(kind Kind, fn func() error) error {
	lock, err := Acquire(c.lockPath(), kind, c.LockTimeout)
	if err != nil {
		return err
	}
	release := c.guard.enterDir()
	defer release()
	defer lock.Release()
	return fn()
}

// withKeyLock runs fn while holding key's per-key lock. It refuses to
// run unless the caller already holds the DataSet-level lock — checked
// at runtime via the guard, not just documented, per the lock-ordering
// rule.
func (c *Controller) withKeyLock(key string, kind Kind, fn func() error) error {
	if err := c.guard.requireDirHeld(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(c.Dir, key), 0o755); err != nil {
		return err
	}
	lock, err := Acquire(c.keyLockPath(key), kind, c.LockTimeout)
	if err != nil {
		return err
	}
	defer lock.Release()
	return fn()
}

// Keys lists the DataSet's current keys.
func (c *Controller) Keys() ([]string, error) {
	return Keys(c.Dir)
}

// Meta returns key's staged metadata annotation, if any, holding a
// shared DataSet lock only while the metadata is read.
func (c *Controller) Meta(key string) (string, error) {
	var meta string
	err := c.withDirLock(Shared, func() error {
		staging, err := LoadStaging(c.Dir)
		if err != nil {
			return err
		}
		meta = staging[key]
		return nil
	})
	return meta, err
}

// Commit performs the full commit sequence for key: exclusive DataSet
// lock, then the per-key lock, write, fsync, atomic rename. writeAux,
// when non-nil, runs inside the per-key lock after the archive source
// lands, receiving the key's directory — the facade uses it to place
// the sidecar, run stub and module file next to archive.go. A no-op
// write (the journaled last source for key already matches) skips the
// write entirely, an internal optimization the contract leaves as
// implementer latitude.
func (c *Controller) Commit(key, source, meta string, writeAux func(keyDir string) error) error {
	return c.withDirLock(Exclusive, func() error {
		j, err := LoadJournal(c.Dir)
		if err != nil {
			return err
		}
		if last, ok := j.LastSource(key); ok && last == source {
			return nil
		}

		err = c.withKeyLock(key, Exclusive, func() error {
			keyDir := filepath.Join(c.Dir, key)
			if err := atomicWriteArchive(keyDir, source); err != nil {
				return err
			}
			if writeAux != nil {
				return writeAux(keyDir)
			}
			return nil
		})
		if err != nil {
			return err
		}

		if meta != "" {
			staging, err := LoadStaging(c.Dir)
			if err != nil {
				return err
			}
			staging[key] = meta
			if err := SaveStaging(c.Dir, staging); err != nil {
				return err
			}
			// Publish: fold the staged metadata into the generated
			// dataset.go's _info_dict var.
			infoSrc := "package dataset\n\n" + RenderInfoDict(staging)
			if err := os.WriteFile(filepath.Join(c.Dir, "dataset.go"), []byte(infoSrc), 0o644); err != nil {
				return err
			}
		}

		j.Record(key, source)
		return j.Save(c.Dir)
	})
}

// atomicWriteArchive writes source into keyDir/archive.go by writing a
// temp file, fsyncing it, then renaming over the final name —
// renames are atomic within a filesystem, so readers never observe a
// partially written file.
func atomicWriteArchive(keyDir, source string) error {
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return err
	}
	final := filepath.Join(keyDir, "archive.go")
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(source); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, final)
}

// GetSource returns key's archive source text without compiling or
// running it.
func (c *Controller) GetSource(key string) (string, error) {
	var source string
	err := c.withDirLock(Shared, func() error {
		return c.withKeyLock(key, Shared, func() error {
			data, err := os.ReadFile(filepath.Join(c.Dir, key, "archive.go"))
			if err != nil {
				return err
			}
			source = string(data)
			return nil
		})
	})
	return source, err
}

// Get loads key's value by compiling and running its single-item
// package as a short-lived subprocess via "go run" — Go cannot
// dynamically import a package built at runtime, so a subprocess is the
// practical substitute. The key's package prints its Value through the
// generated run stub; this layer only shells out and returns the raw
// stdout bytes, leaving decoding to the caller's own type.
func (c *Controller) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := c.withDirLock(Shared, func() error {
		return c.withKeyLock(key, Shared, func() error {
			keyDir := filepath.Join(c.Dir, key)
			cmd := exec.CommandContext(ctx, "go", "run", ".")
			cmd.Dir = keyDir
			data, err := cmd.Output()
			if err != nil {
				return fmt.Errorf("dataset: running %s: %w", keyDir, err)
			}
			out = data
			return nil
		})
	})
	return out, err
}
