package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"pixcrawl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pixcrawl",
	Short: "Selective Pixiv artwork crawler and downloader",
	Long: `pixcrawl walks a creator's catalog or a tag search, filters the works
it finds and downloads the originals of everything that passes.

Filtering happens before any image bytes move: AI-generated works,
works below a bookmark threshold and manga uploads are skipped based on
their metadata alone.

A valid Pixiv session cookie is required. Store one with
'pixcrawl auth login' or export PIXCRAWL_COOKIE.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" && !quiet {
			ui.PrintBanner()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .pixcrawl.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-item output")

	rootCmd.SetVersionTemplate(`pixcrawl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
