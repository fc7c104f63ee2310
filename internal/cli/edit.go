package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/factoryflow/pkg/editor"
	"github.com/matzehuels/factoryflow/pkg/session"
)

// editCommand creates the edit command, which opens the terminal editor.
func (c *CLI) editCommand() *cobra.Command {
	var (
		name    string
		discard bool
	)
	cmd := &cobra.Command{
		Use:   "edit <factory-id>",
		Short: "Edit a factory's flow graph in the terminal",
		Long: `Edit a factory's flow graph in the terminal.

Nodes are listed as a tree below the factory. Select, connect, collapse,
delete, undo and redo work as in the web editor. Unsaved changes are kept
as a draft and restored the next time the factory is opened; quitting with
unsaved changes saves them first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd.Context(), args[0], name, discard)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "factory display name for a new graph")
	cmd.Flags().BoolVar(&discard, "discard-draft", false, "ignore and delete an unsaved draft")
	return cmd
}

func (c *CLI) runEdit(ctx context.Context, factoryID, name string, discard bool) error {
	b, err := c.openBackend(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	drafts, err := openDrafts()
	if err != nil {
		return err
	}
	draft, err := drafts.Load(ctx, factoryID)
	if err != nil {
		return fmt.Errorf("read draft: %w", err)
	}
	if discard && draft != nil {
		if err := drafts.Discard(ctx, factoryID); err != nil {
			return err
		}
		draft = nil
	}

	// The terminal belongs to the editor while it runs.
	ed := editor.New(editor.Env{Layout: b.runner.Apply}, log.New(io.Discard))
	if draft != nil && draft.Draft != nil {
		ed.Dispatch(ctx, editor.Load{FactoryID: factoryID, Graph: *draft.Draft, Persisted: draft.Persisted})
		printInfo("Restored unsaved draft of factory %s", factoryID)
	} else {
		spinner := newSpinnerWithContext(ctx, "Loading...")
		spinner.Start()
		g, err := b.sync.Load(ctx, factoryID, name)
		spinner.Stop()
		if err != nil {
			return err
		}
		ed.Dispatch(ctx, editor.Load{FactoryID: factoryID, Graph: g})
		if draft, err = session.New(factoryID, name, draftTTL); err != nil {
			return err
		}
	}
	if name != "" {
		draft.FactoryName = name
	}

	m := NewEditModel(ctx, ed, b.sync, drafts, draft)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}

	if ed.State().Dirty() {
		printWarning("Unsaved changes kept as a draft")
		printFile(drafts.Path(factoryID))
		printNextStep("Save them", "factoryflow save "+factoryID)
		return nil
	}
	printSuccess("Factory %s is saved", factoryID)
	return nil
}
