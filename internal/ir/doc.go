// Package ir provides the intermediate representation for deferred tensor
// operations.
//
// This package contains type definitions and identity computation only. All
// other internal packages import ir; ir imports nothing internal. This ensures
// IR remains the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - An OperationIr is immutable once created; it describes an operation
//     without touching the backend.
//   - Structural identity (Fingerprint) never includes concrete tensor ids;
//     sequences are renumbered to relative ids first (see Converter) so the
//     same program shape replayed with fresh tensors hashes identically.
//   - Scalar attributes are hashed through their IEEE-754 bit pattern, never
//     through a decimal rendering, so identity is exact.
package ir
