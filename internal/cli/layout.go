package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/factoryflow/pkg/flow/layout"
)

const (
	presetEditor = "editor"
	presetLoad   = "load"
)

// layoutOpts holds the flags of the layout command.
type layoutOpts struct {
	output     string
	preset     string
	horizontal bool
	noCache    bool
}

// layoutCommand creates the layout command for positioning a graph file.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOpts

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute node positions for a flow graph",
		Long: `Compute node positions for a flow graph.

The layout command reads a canvas document or a bare react-flow graph, lays
out its visible nodes with graphviz and writes the graph with the new
positions. The editor preset matches the layout applied after structural
edits; the load preset matches the one applied when a stored graph is opened.

Placements are cached, so re-running on an unchanged graph is instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().StringVar(&opts.preset, "preset", presetEditor, "layout preset: editor, load")
	cmd.Flags().BoolVar(&opts.horizontal, "horizontal", false, "rank left to right (editor preset)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func layoutPreset(name string, horizontal bool) (layout.Options, error) {
	switch name {
	case presetEditor, "":
		return layout.Editor(horizontal), nil
	case presetLoad:
		return layout.Load(), nil
	default:
		return layout.Options{}, fmt.Errorf("unknown layout preset %q (want %s or %s)", name, presetEditor, presetLoad)
	}
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, opts layoutOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	lopts, err := layoutPreset(opts.preset, opts.horizontal || cfg.Layout.Horizontal)
	if err != nil {
		return err
	}
	doc, err := readGraphFile(input)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", input, err)
	}

	b, err := c.openLayout(ctx, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize layout: %w", err)
	}
	defer b.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	probe := &cacheProbe{runner: b.runner}
	laid, err := layout.Apply(ctx, probe, doc.FactoryData, lopts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	out := outputPath(input, opts.output, ".layout.json")
	doc.FactoryData = laid
	if err := writeGraphFile(out, doc); err != nil {
		return fmt.Errorf("write output %s: %w", out, err)
	}

	printSuccess("Layout complete")
	printFile(out)
	printStats(len(laid.Nodes), len(laid.Edges), probe.cached)
	printNewline()
	printNextStep("Render", "factoryflow render "+out)
	return nil
}
