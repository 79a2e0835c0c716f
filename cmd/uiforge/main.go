package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/uiforge/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	verbose     bool
	noColor     bool
	errorFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "uiforge",
		Short: "Component catalog and source rewriting for the authoring canvas",
		Long: `uiforge keeps a project's component catalog and source tree in step.

Promoting a component makes it a shared, file-backed unit. Composing two
or more shared components creates a super component that switches between
them. Deleting a component removes its files, its catalog entry and every
reference to it across the source tree.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				errors.DisableColors()
			}
			_, err := errors.ParseOutputFormat(errorFormat)
			return err
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&errorFormat, "error-format", "pretty", "Error output: pretty, compact or json")

	rootCmd.AddCommand(
		initCmd(),
		promoteCmd(),
		composeCmd(),
		deleteCmd(),
		cleanCmd(),
		syncCmd(),
		listCmd(),
		variantsCmd(),
		exportCmd(),
		importCmd(),
		danglingCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		format, ferr := errors.ParseOutputFormat(errorFormat)
		if ferr != nil {
			format = errors.OutputPretty
		}
		errors.Fprint(os.Stderr, err, format)
		os.Exit(1)
	}
}

// newLogger returns the CLI logger: text on stderr, debug with --verbose.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
