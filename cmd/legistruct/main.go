package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "legistruct",
		Short: "Legal code structure recovery",
		Long: `Legistruct recovers the hierarchy of a legal code (titles, chapters,
sections, articles) from PDF, DOCX, HTML, Markdown or plain text and exports:
  - a nested JSON tree and a flat article map
  - one text file per article
  - retrieval chunks with breadcrumbs
  - parsing diagnostics`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("rules", "", "Parsing rules file (YAML)")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "legistruct %s\n", version)
		},
	}
}

// newLogger writes text logs to stderr, at debug level with --debug.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
