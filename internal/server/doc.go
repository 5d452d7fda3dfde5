// Package server is the per-device runtime front door.
//
// A Server owns one stream router and one handle container. Callers register
// operations against named streams; the server routes them, keeps tensor ids
// flowing, and materializes tensor data only at the read boundary. All
// bookkeeping is synchronous and ordered (single-writer model); asynchrony
// exists only in the Deferred values handed back from reads.
package server
