package dataset

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/phobologic/persist/persisterr"
)

func TestAcquireExclusiveBlocksSecondWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lockfile")
	first, err := Acquire(path, Exclusive, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Release()

	_, err = Acquire(path, Exclusive, 50*time.Millisecond)
	var busy *persisterr.BusyError
	if !errors.As(err, &busy) {
		t.Fatalf("second Acquire error = %v, want BusyError", err)
	}
}

func TestAcquireSharedAllowsConcurrentReaders(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lockfile")
	first, err := Acquire(path, Shared, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer first.Release()

	second, err := Acquire(path, Shared, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("shared Acquire alongside a shared holder: %v", err)
	}
	second.Release()
}

func TestReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lockfile")
	l, err := Acquire(path, Exclusive, time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := Acquire(path, Exclusive, time.Second)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again.Release()
}
