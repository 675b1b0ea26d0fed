// Package dataset implements the on-disk DataSet directory controller:
// locking, metadata staging, a commit journal, and per-key discovery.
// persist.DataSet is a thin facade over this package.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/phobologic/persist/persisterr"
)

// Kind distinguishes a shared (read) lock from an exclusive (write) one.
type Kind int

const (
	Shared Kind = iota
	Exclusive
)

// Lock is a held OS-level advisory lock: one writer per DataSet
// directory, shared holds for readers.
type Lock struct {
	file   *os.File
	kind   Kind
	Holder string // "<pid>:<uuid>", written into the lock file for diagnosability
}

// Acquire takes the lock at path, retrying with backoff until it
// succeeds or timeout elapses. A timeout with no lock acquired is
// persisterr.BusyError — the caller made no partial progress.
func Acquire(path string, kind Kind, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening lock file %s: %w", path, err)
	}

	op := unix.LOCK_SH
	if kind == Exclusive {
		op = unix.LOCK_EX
	}

	deadline := time.Now().Add(timeout)
	backoff := 10 * time.Millisecond
	for {
		err := unix.Flock(int(f.Fd()), op|unix.LOCK_NB)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			f.Close()
			return nil, fmt.Errorf("dataset: locking %s: %w", path, err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, &persisterr.BusyError{Dir: filepath.Dir(path)}
		}
		time.Sleep(backoff)
		if backoff < 200*time.Millisecond {
			backoff *= 2
		}
	}

	holder := fmt.Sprintf("%d:%s", os.Getpid(), uuid.NewString())
	if kind == Exclusive {
		if err := f.Truncate(0); err == nil {
			f.WriteAt([]byte(holder), 0)
		}
	}

	return &Lock{file: f, kind: kind, Holder: holder}, nil
}

// Release drops the lock and closes the underlying file.
func (l *Lock) Release() error {
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return l.file.Close()
}

// guard enforces the lock-ordering rule: a per-key lock may only be
// taken while the caller already holds the DataSet-level lock. It is a
// runtime check, not just documentation.
type guard struct {
	mu      sync.Mutex
	dirHeld bool
}

func newGuard() *guard { return &guard{} }

func (g *guard) enterDir() func() {
	g.mu.Lock()
	g.dirHeld = true
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.dirHeld = false
		g.mu.Unlock()
	}
}

func (g *guard) requireDirHeld() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.dirHeld {
		return fmt.Errorf("dataset: per-key lock requested without holding the DataSet directory lock")
	}
	return nil
}
