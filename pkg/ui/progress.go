package ui

import (
	"fmt"
	"io"
	"time"

	"pixcrawl/pkg/crawler"
)

// ProgressPrinter renders crawl events as terminal lines. Quiet mode
// drops per-item output and keeps only state changes and the final
// summary.
type ProgressPrinter struct {
	out       io.Writer
	quiet     bool
	startTime time.Time
}

// NewProgressPrinter creates a printer writing to out
func NewProgressPrinter(out io.Writer, quiet bool) *ProgressPrinter {
	return &ProgressPrinter{
		out:       out,
		quiet:     quiet,
		startTime: time.Now(),
	}
}

// Consume renders events until the stream closes
func (p *ProgressPrinter) Consume(events <-chan crawler.Event) {
	for ev := range events {
		p.render(ev)
	}
}

func (p *ProgressPrinter) render(ev crawler.Event) {
	switch ev.Type {
	case crawler.EventStateChanged:
		p.printf("%s %s\n", Magenta("[state]"), string(ev.State))

	case crawler.EventPageStarted:
		if ev.Page == 1 && ev.Total > 0 {
			p.printf("%s page %d (%d matching works)\n", Cyan("[page]"), ev.Page, ev.Total)
		} else {
			p.printf("%s page %d\n", Cyan("[page]"), ev.Page)
		}

	case crawler.EventItemRejected:
		if !p.quiet {
			p.printf("%s %s %s\n", Dim("[skip]"), ev.ItemID, Dim(string(ev.Reason)))
		}

	case crawler.EventItemUnresolved:
		p.printf("%s %s could not be resolved\n", Yellow("[warn]"), ev.ItemID)

	case crawler.EventAssetDownloaded:
		if !p.quiet {
			p.printf("%s %s\n", Green("[saved]"), ev.Filename)
		}

	case crawler.EventAssetFailed:
		p.printf("%s %s: %v\n", Red("[failed]"), ev.Filename, ev.Err)

	case crawler.EventRunFinished:
		p.printf("%s run %s\n", Magenta("[done]"), string(ev.State))
	}
}

// PrintSummary renders the final run counters
func (p *ProgressPrinter) PrintSummary(s crawler.Summary) {
	elapsed := time.Since(p.startTime).Round(time.Second)

	p.printf("\n")
	p.printf("%s\n", Cyan("run summary"))
	p.printf("  matched:     %d\n", s.TotalMatched)
	p.printf("  seen:        %d\n", s.TotalSeen)
	p.printf("  downloaded:  %d\n", s.TotalDownloaded)
	p.printf("  ai skipped:  %d\n", s.RejectedAI)
	p.printf("  low marks:   %d\n", s.RejectedBooks)
	p.printf("  keyword:     %d\n", s.RejectedKeywords)
	p.printf("  manga:       %d\n", s.RejectedManga)
	p.printf("  unresolved:  %d\n", s.Unresolved)
	p.printf("  failed:      %d\n", s.AssetFailures)
	p.printf("  elapsed:     %s\n", elapsed)
}

func (p *ProgressPrinter) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}
