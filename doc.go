// Package persist turns an arbitrary Go object graph into a
// re-executable Go source package: inserted values are walked,
// de-duplicated by identity, reduced to a name-assigned, topologically
// ordered declaration list, and emitted as Go source that reconstructs
// them when compiled and run. Large numeric arrays are partitioned out
// of the emitted source into an on-disk sidecar instead of being
// rendered as inline literals.
//
// Archive is the single-rendering facade; DataSet manages a directory
// of many such renderings, one per key, with locking and a commit
// journal so concurrent writers never observe a partial publish.
package persist
