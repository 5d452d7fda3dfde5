package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/fusor/internal/cpu"
	"github.com/roach88/fusor/internal/ir"
	"github.com/roach88/fusor/internal/server"
	"github.com/roach88/fusor/internal/stream"
	"github.com/roach88/fusor/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Trace  string
	Repeat int

	// IdGenerator overrides stream id generation (for testing).
	// If nil, defaults to UUIDv7Generator.
	IdGenerator stream.IdGenerator
}

// ReadValue is one read-back tensor in the run output.
type ReadValue struct {
	Tensor string    `json:"tensor"`
	DType  string    `json:"dtype"`
	Float  []float32 `json:"float,omitempty"`
	Bool   []bool    `json:"bool,omitempty"`
}

// RunResult is the run command's structured output.
type RunResult struct {
	Program string      `json:"program"`
	Runs    int         `json:"runs"`
	Reads   []ReadValue `json:"reads"`
	Stats   string      `json:"stats"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Run a tensor program on the cpu backend",
		Long: `Run a tensor program through the lazy operation stream.

Operations buffer until a read forces execution; explored plans are cached,
so repeated runs (--repeat) replay stored plans instead of re-exploring.

Example:
  fusor run ./program.yaml
  fusor run ./program.yaml --repeat 3 --trace ./trace.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Trace, "trace", "", "record lifecycle events to this SQLite database")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 1, "number of times to run the program")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	prog, err := LoadProgram(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	srv, cleanup, err := newRuntime(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	var reads []ReadValue
	for i := 0; i < opts.Repeat; i++ {
		reads, err = executeOnce(srv, prog)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to execute program", err)
		}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	result := RunResult{
		Program: prog.Name,
		Runs:    opts.Repeat,
		Reads:   reads,
		Stats:   srv.Stats().String(),
	}
	if opts.Format == "json" {
		return out.JSON(result)
	}

	fmt.Fprintf(out.Writer, "program: %s (%d run(s))\n", result.Program, result.Runs)
	for _, rv := range reads {
		if rv.DType == "bool" {
			fmt.Fprintf(out.Writer, "%s = %v\n", rv.Tensor, rv.Bool)
		} else {
			fmt.Fprintf(out.Writer, "%s = %v\n", rv.Tensor, rv.Float)
		}
	}
	if opts.Verbose {
		fmt.Fprintf(out.Writer, "%s\n", result.Stats)
	}
	return nil
}

// newRuntime builds the server, wiring the trace recorder when requested.
func newRuntime(opts *RunOptions) (*server.Server[*cpu.Fused], func(), error) {
	device := cpu.NewDevice()
	var srvOpts []server.Option[*cpu.Fused]
	if opts.IdGenerator != nil {
		srvOpts = append(srvOpts, server.WithIdGenerator[*cpu.Fused](opts.IdGenerator))
	}

	cleanup := func() {}
	if opts.Trace != "" {
		st, err := trace.Open(opts.Trace)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		rec, err := trace.NewRecorder(st, device.Name())
		if err != nil {
			st.Close()
			return nil, nil, WrapExitError(ExitCommandError, "failed to start trace session", err)
		}
		srvOpts = append(srvOpts, server.WithObserver[*cpu.Fused](rec))
		cleanup = func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing trace database", "error", closeErr)
			}
		}
	}

	return server.New[*cpu.Fused](device, cpu.NewExplorer(), srvOpts...), cleanup, nil
}

// executeOnce runs the program on a fresh stream with fresh tensor ids.
func executeOnce(srv *server.Server[*cpu.Fused], prog *Program) ([]ReadValue, error) {
	sid := srv.NewStream()
	env := map[string]ir.TensorIr{}

	for _, spec := range prog.Ops {
		kind, _ := ir.KindFromName(spec.Op)

		inputs := make([]ir.TensorIr, 0, len(spec.In))
		for _, name := range spec.In {
			inputs = append(inputs, env[name])
		}

		var outputs []ir.TensorIr
		if kind == ir.OpDrop {
			inputs[0] = inputs[0].WithStatus(ir.StatusReadWrite)
			delete(env, spec.In[0])
		} else {
			out := ir.TensorIr{
				ID:     srv.CreateTensor(),
				Shape:  outputShape(kind, spec, inputs),
				Status: ir.StatusNotInit,
				DType:  outputDType(kind),
			}
			outputs = []ir.TensorIr{out}
			env[spec.Out] = out.WithStatus(ir.StatusReadOnly)
		}

		op := ir.OperationIr{Kind: kind, Inputs: inputs, Outputs: outputs, Scalar: spec.Scalar}
		srv.Register(sid, op, cpu.Executable(op))
	}

	ctx := context.Background()
	reads := make([]ReadValue, 0, len(prog.Reads))
	for _, name := range prog.Reads {
		t := env[name]
		rv := ReadValue{Tensor: name, DType: t.DType.String()}
		switch t.DType {
		case ir.Bool:
			vals, err := srv.ReadBool(sid, t).Await(ctx)
			if err != nil {
				return nil, fmt.Errorf("read %q: %w", name, err)
			}
			rv.Bool = vals
		default:
			vals, err := srv.ReadFloat(sid, t).Await(ctx)
			if err != nil {
				return nil, fmt.Errorf("read %q: %w", name, err)
			}
			rv.Float = vals
		}
		reads = append(reads, rv)
	}
	return reads, nil
}

func outputShape(kind ir.OpKind, spec OpSpec, inputs []ir.TensorIr) []int {
	switch kind {
	case ir.OpInit:
		return spec.Shape
	case ir.OpMatMul, ir.OpLinear:
		return []int{inputs[0].Shape[0], inputs[1].Shape[1]}
	default:
		return inputs[0].Shape
	}
}

func outputDType(kind ir.OpKind) ir.DType {
	if kind == ir.OpEqual || kind == ir.OpGreater {
		return ir.Bool
	}
	return ir.F32
}

func configureLogging(verbose bool) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
