package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiforge/internal/walk"
	"github.com/vango-dev/uiforge/internal/workflow"
)

func promoteCmd() *cobra.Command {
	var addRefs bool

	cmd := &cobra.Command{
		Use:   "promote <id>",
		Short: "Promote a component to a shared component",
		Long: `Promote a component to a shared, file-backed component.

The component files are generated (existing files are kept) and the
catalog entry is marked shared. With --add-refs the component is also
imported into the canvas page and its canvas block is switched to the
shared component.

Examples:
  uiforge promote card3
  uiforge promote card3 --add-refs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				return runPromote(ctx, e.workflow, args[0], addRefs)
			})
		},
	}

	cmd.Flags().BoolVar(&addRefs, "add-refs", false, "Add the component to the canvas sources")

	return cmd
}

func runPromote(ctx context.Context, wf *workflow.Workflow, id string, addRefs bool) error {
	if err := wf.BeginPromotion(id); err != nil {
		return err
	}
	res, err := wf.ConfirmPromotion(ctx, workflow.PromoteOptions{AddReferences: addRefs})
	if res.Entry.ID == "" {
		return err
	}

	success("Promoted %s", res.Entry.ID)
	for _, f := range res.Scaffold.Created {
		info("created %s", f)
	}
	printReport(res.Report)
	return err
}

func composeCmd() *cobra.Command {
	var (
		name    string
		addRefs bool
	)

	cmd := &cobra.Command{
		Use:   "compose <id> <id>...",
		Short: "Compose shared components into a super component",
		Long: `Compose two or more shared components into a super component that
switches between them by variant.

The name is derived from the words the components share unless --name
is given. A derived name that is taken gets a -variants suffix.

Examples:
  uiforge compose secondary-button secondary-outline-button
  uiforge compose card card-dark --name=card-switch --add-refs`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				return runCompose(ctx, e.workflow, args, name, addRefs)
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Super component id (derived when empty)")
	cmd.Flags().BoolVar(&addRefs, "add-refs", false, "Add the super component to the canvas sources")

	return cmd
}

func runCompose(ctx context.Context, wf *workflow.Workflow, ids []string, name string, addRefs bool) error {
	if err := wf.BeginComposition(ids, name); err != nil {
		return err
	}
	res, err := wf.ConfirmComposition(ctx, workflow.ComposeOptions{AddReferences: addRefs})
	if res.Entry.ID == "" {
		return err
	}

	success("Composed %s", res.Entry.ID)
	for i, w := range res.Entry.Wraps {
		info("variant %s: %s", res.Entry.Variants[i], w)
	}
	printReport(res.Report)
	return err
}

// printReport prints the files a tree pass changed and the ones it could
// not.
func printReport(r walk.Report) {
	for _, p := range r.Changed {
		info("updated %s", p)
	}
	for _, c := range r.Corrections {
		warn("%s: %s", c.Path, c.Correction)
	}
	for _, f := range r.Failed {
		warn("%s", f)
	}
	for _, f := range r.Unresolved {
		warn("unresolved %s", f)
	}
	if len(r.Changed) == 0 && len(r.Failed) == 0 && len(r.Unresolved) == 0 && r.Visited > 0 {
		info("no references to update in %d %s", r.Visited, plural(r.Visited, "file", "files"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// withEnv opens the environment, runs fn and closes it.
func withEnv(ctx context.Context, fn func(e *env) error) error {
	e, err := openEnv(ctx, envOptions{})
	if err != nil {
		return err
	}
	runErr := fn(e)
	if err := e.close(ctx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
