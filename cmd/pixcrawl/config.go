package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixcrawl/pkg/config"
	"pixcrawl/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage pixcrawl configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created as '.pixcrawl.yaml' in the current directory unless
a different path is given with the --config flag.`,
	Run: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging all sources. The
session cookie is masked.`,
	Run: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Run:   runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

const exampleConfig = `# pixcrawl configuration file

pixiv:
  # Session cookie, copied from a logged-in browser session.
  # Prefer 'pixcrawl auth login' or the PIXCRAWL_COOKIE variable over
  # keeping the cookie here.
  cookie: ""
  # Browser string sent to the ajax endpoints.
  user_agent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"
  # Distinct browser string sent to the image host.
  download_user_agent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/96.0.4664.110 Safari/537.36"

rate_limit:
  # Fixed spacing between requests. No bursts, no backoff.
  request_delay: 500ms
  # Extra spacing between search pages.
  page_delay: 3s

filter:
  # Works below this bookmark count are skipped.
  min_bookmarks: 1000
  # Page ceiling for tag searches.
  max_pages: 5
  # Additional tag keywords to skip.
  excluded_keywords: []

output:
  base_directory: "./pixiv_images"
  # Put each run in its own dated subdirectory.
  create_run_folders: true

download:
  timeout: 30s

logging:
  level: "info"
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = ".pixcrawl.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		os.Exit(1)
	}

	if err := os.WriteFile(path, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to write configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Created " + path)
	fmt.Println("\nEdit the file, then check it with 'pixcrawl config validate'.")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	cookie := "(not set)"
	if cfg.Pixiv.Cookie != "" {
		cookie = maskCookie(cfg.Pixiv.Cookie)
	}

	ui.PrintInfo("cookie", cookie)
	ui.PrintInfo("user agent", cfg.Pixiv.UserAgent)
	ui.PrintInfo("request delay", cfg.RateLimit.RequestDelay.String())
	ui.PrintInfo("page delay", cfg.RateLimit.PageDelay.String())
	ui.PrintInfo("min bookmarks", fmt.Sprintf("%d", cfg.Filter.MinBookmarks))
	ui.PrintInfo("max pages", fmt.Sprintf("%d", cfg.Filter.MaxPages))
	ui.PrintInfo("excluded keywords", fmt.Sprintf("%v", cfg.Filter.ExcludedKeywords))
	ui.PrintInfo("output directory", cfg.Output.BaseDirectory)
	ui.PrintInfo("run folders", fmt.Sprintf("%t", cfg.Output.CreateRunFolders))
	ui.PrintInfo("download timeout", cfg.Download.Timeout.String())
	ui.PrintInfo("log level", cfg.Logging.Level)
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		path = ".pixcrawl.yaml"
	}

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		ui.PrintError("Configuration file is not readable", err.Error())
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		ui.PrintError("Configuration is invalid", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(path + " is valid")
}
