package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiforge/internal/catalog"
	"github.com/vango-dev/uiforge/internal/errors"
	"github.com/vango-dev/uiforge/internal/ident"
)

func listCmd() *cobra.Command {
	var shared, super bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Long: `List the components registered in the catalog.

Examples:
  uiforge list
  uiforge list --shared
  uiforge list --super`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				entries := e.catalog.ListAll()
				switch {
				case super:
					entries = e.catalog.Super()
				case shared:
					entries = e.catalog.Shared()
				}
				printEntries(entries)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&shared, "shared", false, "Only shared components (super components included)")
	cmd.Flags().BoolVar(&super, "super", false, "Only super components")
	cmd.MarkFlagsMutuallyExclusive("shared", "super")

	return cmd
}

func printEntries(entries []catalog.Entry) {
	if len(entries) == 0 {
		info("No components registered")
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  ID\tKIND\tCATEGORY\tTAG\tWRAPS")
	for _, e := range entries {
		kind := "-"
		switch {
		case e.IsSuperComponent:
			kind = "super"
		case e.IsSharedComponent:
			kind = "shared"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", e.ID, kind, orDash(e.Category), orDash(e.ComponentTag), joinIDs(e.Wraps))
	}
	tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func variantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants <id>",
		Short: "Print every spelling of a component id",
		Long: `Print the spellings of an id that reference passes match, with the
class name and tag derived from each.

Examples:
  uiforge variants app-app-card`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ident.Validate(args[0]); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  ID\tCLASS\tTAG")
			for _, v := range ident.Variants(args[0]) {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", v, ident.ClassName(v), ident.TagName(v))
			}
			return tw.Flush()
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the catalog document",
		Long: `Write the catalog document to a file, or to stdout when no file is
given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				data, err := catalog.Encode(e.catalog.Export())
				if err != nil {
					return err
				}
				if len(args) == 0 {
					_, err = os.Stdout.Write(data)
					return err
				}
				if err := os.WriteFile(args[0], data, 0644); err != nil {
					return errors.New("E240").Wrap(err).WithDetail("Failed to write " + args[0])
				}
				success("Exported %d components to %s", len(e.catalog.ListAll()), args[0])
				return nil
			})
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a catalog document into the catalog",
		Long: `Merge the entries of an exported catalog document into the catalog.
Entries with the same id are replaced; other entries are kept. Nothing is
changed when any imported entry is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				return runImport(ctx, e.catalog, args[0])
			})
		},
	}
}

func runImport(ctx context.Context, cat *catalog.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New("E241").Wrap(err).WithDetail("Failed to read " + path)
	}
	snap, err := catalog.Decode(data, path)
	if err != nil {
		return err
	}
	if err := cat.Import(ctx, *snap); err != nil {
		return err
	}
	success("Imported %d components", len(snap.RegisteredComponents))
	return nil
}

func danglingCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dangling",
		Short: "List super components wrapping unregistered components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return withEnv(ctx, func(e *env) error {
				refs := e.catalog.Dangling()
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(refs)
				}
				if len(refs) == 0 {
					success("No dangling wraps")
					return nil
				}
				for _, d := range refs {
					warn("%s wraps unregistered %s", d.Super, joinIDs(d.Missing))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}
