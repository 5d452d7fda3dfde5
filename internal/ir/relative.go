package ir

// Converter renumbers concrete tensor ids to relative ids, in order of first
// appearance. Two registrations of the same program shape produce the same
// relative sequence even when every concrete id differs, which is what lets
// the plan index recognize a replay.
//
// A Converter is single-use per sequence position: the stream creates a fresh
// one whenever it needs to re-normalize its buffer (after a prefix of the
// buffer has been executed, remaining ops must be renumbered from zero again).
type Converter struct {
	mapping map[TensorId]TensorId
	next    TensorId
}

// NewConverter creates an empty converter.
func NewConverter() *Converter {
	return &Converter{mapping: make(map[TensorId]TensorId)}
}

// Relative returns a copy of op with every operand id replaced by its
// relative id, allocating new relative ids for first appearances.
func (c *Converter) Relative(op OperationIr) OperationIr {
	out := op
	out.Inputs = c.relativeTensors(op.Inputs)
	out.Outputs = c.relativeTensors(op.Outputs)
	return out
}

func (c *Converter) relativeTensors(tensors []TensorIr) []TensorIr {
	if len(tensors) == 0 {
		return nil
	}
	out := make([]TensorIr, len(tensors))
	for i, t := range tensors {
		rel, ok := c.mapping[t.ID]
		if !ok {
			rel = c.next
			c.mapping[t.ID] = rel
			c.next++
		}
		out[i] = t
		out[i].ID = rel
	}
	return out
}

// RelativeSequence renumbers a whole sequence with a fresh converter.
func RelativeSequence(ops []OperationIr) []OperationIr {
	c := NewConverter()
	out := make([]OperationIr, len(ops))
	for i, op := range ops {
		out[i] = c.Relative(op)
	}
	return out
}
