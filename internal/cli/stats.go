package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/fusor/internal/store"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Repeat int

	run *RunOptions // shares the runtime construction with run
}

// StatsResult is the stats command's structured output.
type StatsResult struct {
	Program     string              `json:"program"`
	Runs        int                 `json:"runs"`
	Plans       []store.PlanSummary `json:"plans"`
	Operations  int                 `json:"operations"`
	Fused       int                 `json:"fused"`
	FusionRatio float64             `json:"fusion_ratio"`
	KindCounts  map[string]int      `json:"kind_counts"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}
	opts.run = &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats <program.yaml>",
		Short: "Show plan-store statistics for a program",
		Long: `Run a tensor program and report what the plan store learned: one
summary per plan (operation count, trigger count, strategy shape), the
operation-kind distribution, and the fusion ratio.

Runs the program twice by default so plan reuse is part of what is measured.

Example:
  fusor stats ./program.yaml
  fusor stats ./program.yaml --repeat 5 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Repeat, "repeat", 2, "number of times to run the program")

	return cmd
}

func runStats(opts *StatsOptions, path string, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	prog, err := LoadProgram(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	srv, cleanup, err := newRuntime(opts.run)
	if err != nil {
		return err
	}
	defer cleanup()

	for i := 0; i < opts.Repeat; i++ {
		if _, err := executeOnce(srv, prog); err != nil {
			return WrapExitError(ExitFailure, "failed to execute program", err)
		}
	}

	stats := srv.Stats()
	result := StatsResult{
		Program:     prog.Name,
		Runs:        opts.Repeat,
		Plans:       srv.Summaries(),
		Operations:  stats.OperationCount,
		Fused:       stats.FusedCount,
		FusionRatio: stats.FusionRatio(),
		KindCounts:  stats.KindCounts,
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.JSON(result)
	}
	renderStats(out, result)
	return nil
}

func renderStats(out *OutputFormatter, result StatsResult) {
	fmt.Fprintf(out.Writer, "program: %s (%d run(s))\n", result.Program, result.Runs)
	fmt.Fprintf(out.Writer, "plans: %d\n", len(result.Plans))
	for _, plan := range result.Plans {
		fmt.Fprintf(out.Writer, "  plan %d: ops=%d triggers=%d strategy=%s\n",
			plan.ID, plan.OperationCount, plan.TriggerCount, plan.Strategy)
	}
	fmt.Fprintf(out.Writer, "operations: %d (%d fused, ratio %.2f)\n",
		result.Operations, result.Fused, result.FusionRatio)

	kinds := make([]string, 0, len(result.KindCounts))
	for kind := range result.KindCounts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	fmt.Fprintln(out.Writer, "kinds:")
	for _, kind := range kinds {
		fmt.Fprintf(out.Writer, "  %s: %d\n", kind, result.KindCounts[kind])
	}
}
