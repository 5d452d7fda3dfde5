// Package store owns the discovered execution plans for one device.
//
// The store is the single source of truth for every exploration outcome: a
// plan records the operation sequence it was discovered over, the triggers
// that authorize replaying it, and the strategy chosen for it. Plans are
// append-only and identified by their insertion index; they are never removed
// or recreated, only extended with new triggers or a refined strategy.
//
// ARCHITECTURE:
//
// Append-Only Plans:
// A plan id, once returned by Add, stays valid for the lifetime of the device
// instance. Unchecked access by id is therefore a plain slice index - an
// out-of-range id is a caller bug and panics by design.
//
// Derived Index:
// The index is a trie over operation fingerprints. It is never independently
// authoritative: replaying Insert for every stored plan in id order rebuilds
// it exactly.
//
// Operations handed to this package must already be renumbered to relative
// ids (ir.RelativeSequence); the store never sees concrete tensor identities.
package store
