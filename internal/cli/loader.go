package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fusor/internal/ir"
)

// Program is a tensor program loaded from a YAML file: an operation list in
// registration order plus the tensors to read back at the end.
type Program struct {
	Name  string   `yaml:"name"`
	Ops   []OpSpec `yaml:"ops"`
	Reads []string `yaml:"reads"`
}

// OpSpec is one operation line. Tensors are named; names are bound to ids
// only when the program runs, so repeated runs replay with fresh ids.
type OpSpec struct {
	Op     string   `yaml:"op"`
	In     []string `yaml:"in,omitempty"`
	Out    string   `yaml:"out,omitempty"`
	Shape  []int    `yaml:"shape,omitempty"`
	Scalar float64  `yaml:"scalar,omitempty"`
}

// LoadProgram reads and validates a program file.
func LoadProgram(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	var prog Program
	if err := yaml.Unmarshal(raw, &prog); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	if err := prog.validate(); err != nil {
		return nil, fmt.Errorf("program %q: %w", prog.Name, err)
	}
	return &prog, nil
}

func (p *Program) validate() error {
	if len(p.Ops) == 0 {
		return fmt.Errorf("no operations")
	}

	defined := map[string]bool{}
	for i, spec := range p.Ops {
		kind, ok := ir.KindFromName(spec.Op)
		if !ok {
			return fmt.Errorf("op %d: unknown operation %q", i, spec.Op)
		}
		if kind == ir.OpCustom {
			return fmt.Errorf("op %d: custom operations cannot be expressed in program files", i)
		}

		if got, want := len(spec.In), arity(kind); got != want {
			return fmt.Errorf("op %d (%s): %d inputs, want %d", i, spec.Op, got, want)
		}
		for _, in := range spec.In {
			if !defined[in] {
				return fmt.Errorf("op %d (%s): input %q is not defined yet", i, spec.Op, in)
			}
		}

		switch kind {
		case ir.OpInit:
			if len(spec.Shape) == 0 {
				return fmt.Errorf("op %d (init): shape is required", i)
			}
		case ir.OpDrop:
			if spec.Out != "" {
				return fmt.Errorf("op %d (drop): drop has no output", i)
			}
		}

		if kind != ir.OpDrop {
			if spec.Out == "" {
				return fmt.Errorf("op %d (%s): output name is required", i, spec.Op)
			}
			if defined[spec.Out] {
				return fmt.Errorf("op %d (%s): output %q is already defined", i, spec.Op, spec.Out)
			}
			defined[spec.Out] = true
		} else {
			delete(defined, spec.In[0])
		}
	}

	if len(p.Reads) == 0 {
		return fmt.Errorf("no reads: the program would never execute")
	}
	for _, name := range p.Reads {
		if !defined[name] {
			return fmt.Errorf("read %q: tensor is not defined (or was dropped)", name)
		}
	}
	return nil
}

// arity returns how many inputs a kind takes in a program file.
func arity(kind ir.OpKind) int {
	switch kind {
	case ir.OpInit:
		return 0
	case ir.OpLinear:
		return 3
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv,
		ir.OpMatMul, ir.OpEqual, ir.OpGreater:
		return 2
	default:
		return 1
	}
}
