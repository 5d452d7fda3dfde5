package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fusor/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
}

// TraceResult holds the trace command's structured output.
type TraceResult struct {
	Sessions []trace.Session `json:"sessions,omitempty"`
	Session  string          `json:"session,omitempty"`
	Events   []trace.Event   `json:"events,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a recorded trace database",
		Long: `Inspect lifecycle events recorded with "fusor run --trace".

Without --session, lists the recorded sessions. With --session, dumps that
session's events in recorded order: registrations, plan creations, plan
reuses, and drains.

Examples:
  fusor trace --db ./trace.db
  fusor trace --db ./trace.db --session <id>
  fusor trace --db ./trace.db --session <id> --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to trace SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to dump")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if opts.Session == "" {
		sessions, err := st.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		if opts.Format == "json" {
			return out.JSON(TraceResult{Sessions: sessions})
		}
		fmt.Fprintf(out.Writer, "sessions: %d\n", len(sessions))
		for _, sess := range sessions {
			fmt.Fprintf(out.Writer, "  %s device=%s started=%s\n", sess.ID, sess.Device, sess.StartedAt)
		}
		return nil
	}

	events, err := st.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if opts.Format == "json" {
		return out.JSON(TraceResult{Session: opts.Session, Events: events})
	}

	fmt.Fprintf(out.Writer, "session %s: %d event(s)\n", opts.Session, len(events))
	for _, e := range events {
		fmt.Fprintf(out.Writer, "  %4d %-14s stream=%s%s\n", e.Seq, e.Kind, e.Stream, eventDetail(e))
	}
	return nil
}

func eventDetail(e trace.Event) string {
	switch e.Kind {
	case trace.EventOperationRegistered:
		return fmt.Sprintf(" op=%s", e.OpKind)
	case trace.EventPlanCreated:
		return fmt.Sprintf(" plan=%d ops=%d strategy=%s", e.PlanId, e.Operations, e.Strategy)
	case trace.EventPlanReused:
		return fmt.Sprintf(" plan=%d", e.PlanId)
	case trace.EventStreamDrained:
		return fmt.Sprintf(" executed=%d", e.Operations)
	default:
		return ""
	}
}
