package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/factoryflow/pkg/flow"
	"github.com/matzehuels/factoryflow/pkg/notice"
	"github.com/matzehuels/factoryflow/pkg/persist"
	"github.com/matzehuels/factoryflow/pkg/session"
)

// draftTTL is how long an unsaved terminal-editor draft is kept.
const draftTTL = 7 * 24 * time.Hour

func openDrafts() (*session.DraftStore, error) {
	dir, err := draftDir()
	if err != nil {
		return nil, err
	}
	return session.NewDraftStore(dir, draftTTL)
}

// saveCommand creates the save command.
func (c *CLI) saveCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "save <factory-id>",
		Short: "Save a flow graph to the factory backend",
		Long: `Save a flow graph to the factory backend.

The graph comes from --file or, without it, from the unsaved draft left by
'factoryflow edit'. The save creates the document when the factory has none,
and otherwise updates the document, the asset allocations and the shop
floors. Relations between assets are written first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSave(cmd.Context(), args[0], file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "graph file to save (default: the editor draft)")
	return cmd
}

func (c *CLI) runSave(ctx context.Context, factoryID, file string) error {
	drafts, err := openDrafts()
	if err != nil {
		return err
	}

	var g flow.Graph
	if file != "" {
		doc, err := readGraphFile(file)
		if err != nil {
			return err
		}
		g = doc.FactoryData
	} else {
		draft, err := drafts.Load(ctx, factoryID)
		if err != nil {
			return err
		}
		if draft == nil || draft.Draft == nil {
			printInfo("No unsaved draft for factory %s", factoryID)
			printNextStep("Save a file", "factoryflow save "+factoryID+" --file graph.json")
			return nil
		}
		g = *draft.Draft
	}

	b, err := c.openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	report := runSaga(ctx, "Saving...", func(ctx context.Context) persist.Report {
		return b.sync.SaveOrUpdate(ctx, factoryID, g)
	})
	if err := reportOutcome(report); err != nil {
		return err
	}
	if file == "" {
		if err := drafts.Discard(ctx, factoryID); err != nil {
			loggerFromContext(ctx).Warn("discard draft", "factory", factoryID, "err", err)
		}
	}
	return nil
}

// refreshCommand creates the refresh command.
func (c *CLI) refreshCommand() *cobra.Command {
	var (
		name   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "refresh <factory-id>",
		Short: "Rebuild the stored graph from the entity store",
		Long: `Rebuild the stored graph from the entity store.

The factory's current topology replaces its stored document. Any unsaved
editor draft is discarded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReplace(cmd.Context(), args[0], output, "Refreshing...",
				func(ctx context.Context, b *backend) (flow.Graph, persist.Report) {
					return b.sync.Refresh(ctx, args[0], name)
				})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "factory display name for a new graph")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the refreshed graph to this file")
	return cmd
}

// resetCommand creates the reset command.
func (c *CLI) resetCommand() *cobra.Command {
	var (
		yes    bool
		output string
	)
	cmd := &cobra.Command{
		Use:   "reset <factory-id>",
		Short: "Strip a stored graph down to its shop floors",
		Long: `Strip a stored graph down to its shop floors.

Every asset and relation node is removed from the stored document, the
asset allocations are deleted and the shop floors are re-synced. This
cannot be undone, so --yes is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				printWarning("Reset removes every asset from factory %s", args[0])
				return errors.New("refusing to reset without --yes")
			}
			return c.runReplace(cmd.Context(), args[0], output, "Resetting...",
				func(ctx context.Context, b *backend) (flow.Graph, persist.Report) {
					g, err := b.sync.Load(ctx, args[0], "")
					if err != nil {
						return flow.Graph{}, persist.Report{FactoryID: args[0], Mode: persist.ModeReset, Err: err,
							Notices: []notice.Notice{notice.Errorf(persist.SummaryResetFailed, "%v", err)}}
					}
					return b.sync.Reset(ctx, args[0], g)
				})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the pruned graph to this file")
	return cmd
}

// runReplace runs a saga that yields a new stored graph and discards the
// local draft it supersedes.
func (c *CLI) runReplace(ctx context.Context, factoryID, output, msg string,
	run func(context.Context, *backend) (flow.Graph, persist.Report),
) error {
	b, err := c.openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	var g flow.Graph
	report := runSaga(ctx, msg, func(ctx context.Context) persist.Report {
		var r persist.Report
		g, r = run(ctx, b)
		return r
	})
	if err := reportOutcome(report); err != nil {
		return err
	}

	if drafts, err := openDrafts(); err == nil {
		_ = drafts.Discard(ctx, factoryID)
	}
	printStats(len(g.Nodes), len(g.Edges), false)
	if output != "" {
		if err := writeGraphFile(output, flow.Document{FactoryID: factoryID, FactoryData: g}); err != nil {
			return fmt.Errorf("write output %s: %w", output, err)
		}
		printFile(output)
	}
	return nil
}

// runSaga shows a spinner while fn talks to the backend.
func runSaga(ctx context.Context, msg string, fn func(context.Context) persist.Report) persist.Report {
	prog := newProgress(loggerFromContext(ctx))
	spinner := newSpinnerWithContext(ctx, msg)
	spinner.Start()
	report := fn(ctx)
	spinner.Stop()
	prog.done(report.String())
	return report
}

// reportOutcome prints the report's notices and step timings and returns
// its error.
func reportOutcome(r persist.Report) error {
	for _, n := range r.Notices {
		printNotice(n)
	}
	for _, s := range r.Steps {
		status := "ok"
		if s.Err != nil {
			status = "failed"
		}
		printDetail("%-20s %-6s %s", s.Name, status, s.Duration.Round(time.Millisecond))
	}
	return r.Err
}
