// Package stream implements the lazy operation streams and their router.
//
// A stream buffers the operations issued by one causal thread of tensor
// computation instead of executing them eagerly. On every registration the
// buffered prefix is matched against the shared plan store; only when a
// trigger fires, a barrier operation arrives, or an explicit drain is
// requested do buffered operations become an executable unit.
//
// ARCHITECTURE:
//
// Single-Writer Discipline:
// All stream, store, and index mutation for one device happens under one
// exclusive-access owner. There is no internal locking; the device runtime
// serializes callers. This keeps matching, exploration, and execution
// deterministic for a fixed input sequence.
//
// Matching Policy:
// 1. While the buffer is a strict prefix of a stored plan, defer - a longer
//    known plan may still match.
// 2. When triggers fire, the plan whose fused strategy covers the longest
//    prefix wins; ties break to the lowest (first discovered) plan id.
// 3. On divergence from everything stored, defer until the next sync point
//    (drain, read, barrier op, or buffer limit), then explore.
//
// Exploration is never fatal: when the optimizer finds no fusion, the stream
// degrades to replaying the buffered operations individually.
//
// Ordering guarantee: operations within one stream execute in registration
// order, subject only to the optimizer's ordering permutation, which must
// respect read/write dependencies. Cross-stream ordering is established by
// the router draining a producer stream before a consumer registers.
package stream
