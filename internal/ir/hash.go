package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOperation = "fusor/operation/v1"
	DomainSequence  = "fusor/sequence/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the structural identity of an operation.
//
// The fingerprint covers kind, scalar attribute (as IEEE-754 bits), custom
// name, and per-operand shape, dtype, and status - plus the operand ids AS
// GIVEN. Callers that want replay-stable identity must renumber the sequence
// to relative ids first (see Converter.RelativeSequence); the fingerprint of
// a relative operation is then independent of concrete tensor identities.
//
// Panics on marshal failure: the payload is machine-built from closed types,
// so failure indicates a bug in this package, not a runtime condition.
func (op OperationIr) Fingerprint() string {
	payload := map[string]any{
		"kind":    op.Kind.String(),
		"inputs":  tensorPayload(op.Inputs),
		"outputs": tensorPayload(op.Outputs),
	}
	if op.Scalar != 0 {
		payload["scalar_bits"] = int64(math.Float64bits(op.Scalar))
	}
	if op.Name != "" {
		payload["name"] = op.Name
	}

	canonical, err := MarshalCanonical(payload)
	if err != nil {
		panic(fmt.Sprintf("operation fingerprint: %v", err))
	}
	return hashWithDomain(DomainOperation, canonical)
}

// SequenceFingerprint computes one identity for an ordered operation
// sequence. Used for trigger equality and trace records.
func SequenceFingerprint(ops []OperationIr) string {
	parts := make([]any, len(ops))
	for i, op := range ops {
		parts[i] = op.Fingerprint()
	}
	canonical, err := MarshalCanonical(parts)
	if err != nil {
		panic(fmt.Sprintf("sequence fingerprint: %v", err))
	}
	return hashWithDomain(DomainSequence, canonical)
}

func tensorPayload(tensors []TensorIr) []any {
	out := make([]any, len(tensors))
	for i, t := range tensors {
		shape := make([]any, len(t.Shape))
		for j, d := range t.Shape {
			shape[j] = d
		}
		out[i] = map[string]any{
			"id":     uint64(t.ID),
			"shape":  shape,
			"status": t.Status.String(),
			"dtype":  t.DType.String(),
		}
	}
	return out
}
