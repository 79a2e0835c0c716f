package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiforge/internal/config"
	"github.com/vango-dev/uiforge/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		force bool
		mode  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default uiforge.json",
		Long: `Write uiforge.json with the default paths to the current directory.

Examples:
  uiforge init
  uiforge init --scaffold=remote`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if config.Exists(wd) && !force {
				return errors.New("E120").
					WithDetail("uiforge.json already exists in " + wd).
					WithSuggestion("Use --force to overwrite it")
			}

			cfg := config.New()
			cfg.Name = filepath.Base(wd)
			if mode != "" {
				cfg.Scaffold.Mode = mode
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveTo(filepath.Join(wd, config.ConfigFileName)); err != nil {
				return err
			}
			success("Created %s", config.ConfigFileName)
			info("components: %s", cfg.Paths.Components)
			info("canvas:     %s", cfg.Paths.Canvas)
			info("catalog:    %s", cfg.Paths.Catalog)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing uiforge.json")
	cmd.Flags().StringVar(&mode, "scaffold", "", "Scaffold mode: local or remote")

	return cmd
}
