// Package persisterr defines the error kinds an archive or DataSet can
// return. Each kind is a distinct Go type so callers can distinguish them
// with errors.As instead of string matching.
package persisterr

import (
	"fmt"
	"reflect"
)

// NotRepresentableError is returned when no handler in the representation
// registry accepts a value.
type NotRepresentableError struct {
	Type reflect.Type
}

func (e *NotRepresentableError) Error() string {
	return fmt.Sprintf("persist: no representer accepted a value of type %s", e.Type)
}

// CyclicError is returned when the graph builder re-enters a value that is
// still being walked.
type CyclicError struct {
	Path []string
}

func (e *CyclicError) Error() string {
	return fmt.Sprintf("persist: cyclic reference through %v", e.Path)
}

// NameCollisionError is returned when a user-supplied top-level name clashes
// with a prior insert or a reserved name.
type NameCollisionError struct {
	Name string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("persist: name %q is already bound", e.Name)
}

// UnboundIdentifierError is returned when an emitted expression references
// an identifier that nothing in the reduced plan defines. This always
// indicates a defect in a registered representer, never a user-data
// problem.
type UnboundIdentifierError struct {
	Name string
	Expr string
}

func (e *UnboundIdentifierError) Error() string {
	return fmt.Sprintf("persist: expression %q references unbound identifier %q", e.Expr, e.Name)
}

// BadRepresenterError is returned when the reduced emission graph is found
// to still contain a cycle after reduction, or otherwise violates an
// invariant the reducer expects representers to uphold.
type BadRepresenterError struct {
	NodeID int
	Reason string
}

func (e *BadRepresenterError) Error() string {
	return fmt.Sprintf("persist: representer produced an invalid graph at node %d: %s", e.NodeID, e.Reason)
}

// BusyError is returned when a DataSet lock could not be acquired before
// its timeout. The operation had no side effects and may be retried.
type BusyError struct {
	Dir string
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("persist: could not acquire the DataSet lock on %s before the timeout", e.Dir)
}

// CorruptArchiveError is returned when an array sidecar and its source
// disagree on array keys, or a stored content hash no longer matches its
// payload.
type CorruptArchiveError struct {
	Key    string
	Reason string
}

func (e *CorruptArchiveError) Error() string {
	return fmt.Sprintf("persist: archive %q is corrupt: %s", e.Key, e.Reason)
}
