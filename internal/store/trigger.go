package store

import "github.com/roach88/fusor/internal/ir"

// TriggerKind distinguishes the trigger variants.
type TriggerKind int

const (
	// TriggerOnOperations fires when the buffered prefix exactly matches the
	// trigger's operation sequence.
	TriggerOnOperations TriggerKind = iota + 1
	// TriggerOnSync fires on an explicit synchronization or read request,
	// regardless of buffer content.
	TriggerOnSync
	// TriggerAlways fires unconditionally. Used for degenerate single-op
	// plans finalized at registration time.
	TriggerAlways
)

// String returns the kind name for logs and summaries.
func (k TriggerKind) String() string {
	switch k {
	case TriggerOnOperations:
		return "on_operations"
	case TriggerOnSync:
		return "on_sync"
	case TriggerAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Trigger is one condition under which a stored plan is recognized as
// matching the stream buffer. A plan holds a set of triggers; any one firing
// authorizes using that plan.
type Trigger struct {
	Kind       TriggerKind
	Operations []ir.OperationIr // TriggerOnOperations only, relative ids

	// fingerprints caches the per-operation fingerprints so firing checks
	// against the buffer are a string comparison, not a re-hash.
	fingerprints []string
}

// OnOperations builds a trigger firing when the buffered prefix matches ops.
// ops must already be relative-renumbered.
func OnOperations(ops []ir.OperationIr) Trigger {
	fps := make([]string, len(ops))
	for i, op := range ops {
		fps[i] = op.Fingerprint()
	}
	return Trigger{Kind: TriggerOnOperations, Operations: ops, fingerprints: fps}
}

// OnSync builds a trigger firing on explicit drains.
func OnSync() Trigger {
	return Trigger{Kind: TriggerOnSync}
}

// Always builds an unconditional trigger.
func Always() Trigger {
	return Trigger{Kind: TriggerAlways}
}

// Key returns the identity used to enforce trigger-set uniqueness. Two
// triggers with the same kind and operation sequence are the same trigger.
func (t Trigger) Key() string {
	switch t.Kind {
	case TriggerOnOperations:
		return "on_operations/" + ir.SequenceFingerprint(t.Operations)
	case TriggerOnSync:
		return "on_sync"
	case TriggerAlways:
		return "always"
	default:
		return "unknown"
	}
}

// Fires reports whether this trigger recognizes the buffered prefix.
// bufferFps are the fingerprints of the (relative) buffered operations from
// the start of the buffer; sync reports whether an explicit drain is in
// progress.
func (t Trigger) Fires(bufferFps []string, sync bool) bool {
	switch t.Kind {
	case TriggerAlways:
		return true
	case TriggerOnSync:
		return sync
	case TriggerOnOperations:
		if len(bufferFps) < len(t.fingerprints) {
			return false
		}
		for i, fp := range t.fingerprints {
			if bufferFps[i] != fp {
				return false
			}
		}
		return true
	default:
		return false
	}
}
