package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiforge/internal/workflow"
)

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a component and every reference to it",
		Long: `Delete a component's files and catalog entry, then remove every
reference to it across the source tree.

All spellings of the id are covered, so deleting app-card also removes
references to card. Components wrapped by a deleted super component are
left untouched. Super components still wrapping the deleted component are
reported, not edited.

Examples:
  uiforge delete old-card`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				res, err := e.workflow.Delete(ctx, args[0])
				printDelete(res, true)
				return err
			})
		},
	}
}

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean <id>",
		Short: "Unregister a component and remove its references",
		Long: `Unregister a component and remove every reference to it across the
source tree. Unlike delete, the component files are kept.

Examples:
  uiforge clean old-card`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				res, err := e.workflow.Clean(ctx, args[0])
				printDelete(res, false)
				return err
			})
		},
	}
}

func printDelete(res workflow.DeleteResult, files bool) {
	if res.ID == "" {
		return
	}
	if files {
		info("deleted files: %s", joinIDs(res.Deleted))
	}
	info("unregistered: %s", joinIDs(res.Unregistered))
	printReport(res.Report)
	for _, d := range res.Dangling {
		warn("%s still wraps %s", d.Super, joinIDs(d.Missing))
	}
	if res.Report.Err() == nil {
		success("Removed %s", res.ID)
	}
}

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Add every super component to the canvas sources",
		Long: `Add the import, dependency and switch case of every registered super
component whose files exist to the canvas page. References already present
are left as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				return runSync(ctx, e.workflow)
			})
		},
	}
}

func runSync(ctx context.Context, wf *workflow.Workflow) error {
	res, err := wf.SyncSuperComponents(ctx)
	for _, id := range res.Missing {
		warn("%s has no component files", id)
	}
	printReport(res.Report)
	if err == nil {
		success("Synced %d super %s", len(res.Synced), plural(len(res.Synced), "component", "components"))
	}
	return err
}
