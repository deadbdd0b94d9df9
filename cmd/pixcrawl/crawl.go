package main

import (
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"pixcrawl/internal/downloader"
	"pixcrawl/pkg/auth"
	"pixcrawl/pkg/config"
	"pixcrawl/pkg/crawler"
	"pixcrawl/pkg/logger"
	"pixcrawl/pkg/pixiv"
	"pixcrawl/pkg/ratelimit"
	"pixcrawl/pkg/ui"
)

var (
	// Crawl command flags
	outputDir    string
	minBookmarks int
	maxPages     int
	excluded     []string
	cookieFlag   string
	accountName  string
)

// crawlCmd groups the two crawl modes
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl and download artworks",
	Long: `Crawl a creator's catalog or a tag search and download every work
that passes the filter policy.`,
}

var artistCmd = &cobra.Command{
	Use:   "artist <artist-id>",
	Short: "Download a creator's full catalog",
	Long: `Walk the complete public catalog of one creator, newest first, and
download everything that passes the filter policy.

The artist ID is the numeric part of the creator's profile URL:
https://www.pixiv.net/users/<artist-id>`,
	Example: `  # Download a creator's catalog with default filters
  pixcrawl crawl artist 12345

  # Keep everything regardless of popularity
  pixcrawl crawl artist 12345 --min-bookmarks 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runCrawl(crawler.ModeArtist, strings.TrimSpace(args[0]))
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <keyword>",
	Short: "Download tag search results",
	Long: `Search works by tag, newest first, and download everything on the
first pages that passes the filter policy. Tag mode filenames carry the
bookmark count so popular works sort together.`,
	Example: `  # Download up to 5 pages of a tag search
  pixcrawl crawl tag 風景

  # Deeper crawl with a higher popularity floor
  pixcrawl crawl tag 風景 --max-pages 10 --min-bookmarks 5000`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runCrawl(crawler.ModeTag, strings.TrimSpace(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	crawlCmd.AddCommand(artistCmd)
	crawlCmd.AddCommand(tagCmd)

	crawlCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (default: ./pixiv_images)")
	crawlCmd.PersistentFlags().IntVar(&minBookmarks, "min-bookmarks", -1, "minimum bookmark count (default from config)")
	crawlCmd.PersistentFlags().IntVar(&maxPages, "max-pages", 0, "maximum search pages in tag mode (default from config)")
	crawlCmd.PersistentFlags().StringSliceVar(&excluded, "exclude", nil, "additional tag keywords to skip")
	crawlCmd.PersistentFlags().StringVar(&cookieFlag, "cookie", "", "Pixiv session cookie")
	crawlCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use specific stored account")
}

func runCrawl(mode crawler.Mode, identifier string) {
	flags := make(map[string]interface{})
	if cookieFlag != "" {
		flags["cookie"] = cookieFlag
	}
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if minBookmarks >= 0 {
		flags["min-bookmarks"] = minBookmarks
	}
	if maxPages > 0 {
		flags["max-pages"] = maxPages
	}
	if len(excluded) > 0 {
		flags["exclude"] = excluded
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("pixcrawl starting")

	resolveCookie(cfg)
	if cfg.Pixiv.Cookie == "" {
		logger.GetLogger().Error("no session cookie available")
		ui.PrintError("No Pixiv session cookie found", "")
		ui.PrintInfo("Store one with", "pixcrawl auth login")
		ui.PrintInfo("Or export", "PIXCRAWL_COOKIE=...")
		os.Exit(1)
	}

	ui.PrintInfo("Target", string(mode)+" "+identifier)

	client := pixiv.NewClient(cfg.Download.Timeout, cfg.Pixiv.Cookie, cfg.Pixiv.UserAgent, nil)
	executor := downloader.NewExecutor(cfg.Download.Timeout, cfg.Pixiv.DownloadUserAgent, cfg.Pixiv.Cookie, nil)
	limiter := ratelimit.NewFixedInterval(cfg.RateLimit.RequestDelay)

	engine := crawler.New(client, executor, limiter, crawler.Options{
		OutputDir:        cfg.Output.BaseDirectory,
		CreateRunFolders: cfg.Output.CreateRunFolders,
		PageDelay:        cfg.RateLimit.PageDelay,
	}, nil)

	printer := ui.NewProgressPrinter(os.Stdout, quiet)
	var consumers sync.WaitGroup
	consumers.Add(1)
	go func() {
		defer consumers.Done()
		printer.Consume(engine.Events())
	}()

	// first interrupt cancels gracefully, second one force-exits
	interrupts := make(chan os.Signal, 2)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupts
		ui.PrintWarning("Interrupt received, finishing the current item")
		engine.Cancel()
		<-interrupts
		os.Exit(1)
	}()

	err = engine.Run(crawler.Target{
		Mode:             mode,
		Identifier:       identifier,
		MinBookmarks:     cfg.Filter.MinBookmarks,
		MaxPages:         cfg.Filter.MaxPages,
		ExcludedKeywords: cfg.Filter.ExcludedKeywords,
	})
	consumers.Wait()
	signal.Stop(interrupts)

	printer.PrintSummary(engine.Summary())

	if err != nil {
		logger.WithError(err).Error("crawl failed")
		ui.PrintError("Crawl failed", err.Error())
		os.Exit(1)
	}

	if engine.State() == crawler.StateCancelled {
		ui.PrintWarning("Crawl cancelled")
		return
	}
	ui.PrintSuccess("Crawl completed")
}

// resolveCookie fills the session cookie from stored credentials when
// the config and flags did not provide one
func resolveCookie(cfg *config.Config) {
	manager, err := auth.NewManager()
	if err != nil {
		return
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Stored accounts", "pixcrawl auth list")
			os.Exit(1)
		}
	} else if cfg.Pixiv.Cookie == "" {
		account, _ = manager.RetrieveDefault()
	}

	if account != nil {
		cfg.Pixiv.Cookie = account.Cookie
		if account.UserAgent != "" {
			cfg.Pixiv.UserAgent = account.UserAgent
		}
		logger.WithField("account", account.Name).Info("using stored credentials")
	}
}
