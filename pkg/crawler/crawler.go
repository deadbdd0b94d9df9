package crawler

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"pixcrawl/internal/downloader"
	"pixcrawl/pkg/logger"
	"pixcrawl/pkg/pixiv"
	"pixcrawl/pkg/ratelimit"
	"pixcrawl/pkg/storage"
)

// State is the lifecycle state of a crawl run
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Mode selects how candidate items are enumerated
type Mode string

const (
	// ModeArtist crawls the full public catalog of one creator
	ModeArtist Mode = "artist"

	// ModeTag crawls paginated keyword search results
	ModeTag Mode = "tag"
)

// Target describes one crawl run
type Target struct {
	Mode             Mode
	Identifier       string
	MinBookmarks     int
	MaxPages         int
	ExcludedKeywords []string
}

// Options carries the run-independent engine settings
type Options struct {
	OutputDir        string
	CreateRunFolders bool
	PageDelay        time.Duration
}

// eventBufferSize bounds the progress channel. Slow consumers lose
// events rather than stalling the crawl.
const eventBufferSize = 64

// Crawler drives one sequential crawl run: enumerate candidates, fetch
// metadata, filter, download. A single worker processes items in order;
// politeness comes from the rate limiter, not concurrency control.
type Crawler struct {
	client   *pixiv.Client
	executor *downloader.Executor
	limiter  ratelimit.Limiter
	opts     Options
	logger   logger.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	summary Summary
	events  chan Event
}

// New creates a crawler. One crawler drives one run; create a fresh
// instance for each target.
func New(client *pixiv.Client, executor *downloader.Executor, limiter ratelimit.Limiter, opts Options, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Crawler{
		client:   client,
		executor: executor,
		limiter:  limiter,
		opts:     opts,
		logger:   log,
		state:    StateIdle,
		events:   make(chan Event, eventBufferSize),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Events returns the progress stream. The channel closes when the run
// reaches a terminal state.
func (c *Crawler) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state
func (c *Crawler) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Summary returns a snapshot of the run counters
func (c *Crawler) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.summary
	s.State = c.state
	return s
}

// Pause suspends the run at the next item or page boundary. The item
// being processed finishes first. No-op unless the run is active.
func (c *Crawler) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return
	}
	c.state = StatePaused
	c.emitLocked(Event{Type: EventStateChanged, State: StatePaused})
}

// Resume continues a paused run
func (c *Crawler) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return
	}
	c.state = StateRunning
	c.emitLocked(Event{Type: EventStateChanged, State: StateRunning})
	c.cond.Broadcast()
}

// Cancel stops the run. The item being processed finishes, then the run
// ends in the cancelled state. Also wakes a paused run.
func (c *Crawler) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning && c.state != StatePaused {
		return
	}
	c.state = StateCancelled
	c.emitLocked(Event{Type: EventStateChanged, State: StateCancelled})
	c.cond.Broadcast()
}

// Run executes the crawl to completion. It blocks until the run reaches
// a terminal state. A non-nil error reports a setup problem detected
// before any network traffic; once running, item and page failures are
// absorbed into the summary.
func (c *Crawler) Run(target Target) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return NewError(ErrorKindSetup, "", "crawler has already run", nil)
	}
	c.mu.Unlock()

	if err := c.validate(target); err != nil {
		c.fail(err)
		return err
	}

	store, err := c.openRunDir(target)
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	c.state = StateRunning
	c.emitLocked(Event{Type: EventStateChanged, State: StateRunning})
	c.mu.Unlock()

	c.logger.InfoWithFields("crawl started", map[string]interface{}{
		"mode":       string(target.Mode),
		"identifier": target.Identifier,
		"output":     store.Dir(),
	})

	c.crawl(target, store)
	c.finish()
	return nil
}

// crawl runs the page loop. Listing failures exhaust the page sequence
// rather than ending the run in error.
func (c *Crawler) crawl(target Target, store *storage.Manager) {
	filter := &Filter{
		MinBookmarks:     target.MinBookmarks,
		ExcludedKeywords: target.ExcludedKeywords,
	}
	source := c.newSource(target)

	for page := 1; ; page++ {
		if !c.gate() {
			return
		}

		c.limiter.Wait()
		ids, total, hasMore, err := source.NextPage(page)
		if err != nil {
			// a failed page is treated as exhausted; the run keeps
			// whatever was downloaded so far
			c.logger.WarnWithFields("listing page failed, stopping", map[string]interface{}{
				"page":  page,
				"error": err.Error(),
			})
			return
		}

		if page == 1 {
			c.logger.InfoWithFields("listing resolved", map[string]interface{}{
				"matched": total,
			})
		}

		c.mu.Lock()
		c.summary.CurrentPage = page
		if page == 1 {
			c.summary.TotalMatched = total
		}
		c.emitLocked(Event{Type: EventPageStarted, Page: page, Total: total})
		c.mu.Unlock()

		for _, id := range ids {
			if !c.gate() {
				return
			}
			c.processItem(target, filter, store, id)
		}

		if !hasMore {
			return
		}

		time.Sleep(c.opts.PageDelay)
	}
}

// processItem fetches, filters and downloads one item. Failures are
// recorded and never abort the run.
func (c *Crawler) processItem(target Target, filter *Filter, store *storage.Manager, id string) {
	c.limiter.Wait()
	artwork, err := c.client.FetchArtwork(id)
	if err != nil {
		c.logger.WarnWithFields("item metadata lookup failed", map[string]interface{}{
			"item":  id,
			"error": err.Error(),
		})
		c.mu.Lock()
		c.summary.TotalSeen++
		c.summary.Unresolved++
		c.emitLocked(Event{
			Type:   EventItemUnresolved,
			ItemID: id,
			Err:    NewError(ErrorKindUnresolved, id, "metadata lookup failed", err),
		})
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.summary.TotalSeen++
	c.mu.Unlock()

	if reason := filter.Decide(artwork); reason != RejectNone {
		c.mu.Lock()
		c.summary.record(reason)
		c.emitLocked(Event{
			Type:   EventItemRejected,
			ItemID: id,
			Title:  artwork.Title,
			Reason: reason,
		})
		c.mu.Unlock()
		return
	}

	refs, err := ExpandAssets(artwork)
	if err != nil {
		c.logger.WarnWithFields("asset pattern not recognized", map[string]interface{}{
			"item": id,
			"url":  artwork.OriginalURL,
		})
		c.mu.Lock()
		c.summary.Unresolved++
		c.emitLocked(Event{
			Type:   EventItemUnresolved,
			ItemID: id,
			Title:  artwork.Title,
			Err:    err,
		})
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.emitLocked(Event{Type: EventItemAccepted, ItemID: id, Title: artwork.Title})
	c.mu.Unlock()

	referer := pixiv.GetArtworkPageURL(id)
	for _, ref := range refs {
		filename := c.assetFilename(target, artwork, ref, len(refs))

		c.limiter.Wait()
		data, err := c.executor.Fetch(ref.URL, referer)
		if err != nil {
			c.recordAssetFailure(id, filename, NewError(ErrorKindTransport, id, "asset download failed", err))
			continue
		}

		if err := store.SaveAsset(filename, data); err != nil {
			c.recordAssetFailure(id, filename, NewError(ErrorKindPersist, id, "asset write failed", err))
			continue
		}

		c.mu.Lock()
		c.summary.TotalDownloaded++
		c.emitLocked(Event{
			Type:     EventAssetDownloaded,
			ItemID:   id,
			Title:    artwork.Title,
			Filename: filename,
		})
		c.mu.Unlock()
	}
}

// assetFilename composes the on-disk name for one asset. Single asset
// works carry the title, and the bookmark count in tag mode. Multi
// asset works use the id and page index only.
func (c *Crawler) assetFilename(target Target, artwork *pixiv.Artwork, ref AssetRef, total int) string {
	ext := storage.ExtensionFromURL(ref.URL)
	if total > 1 {
		return fmt.Sprintf("%s_p%d.%s", artwork.ID, ref.Index, ext)
	}

	bookmarks := -1
	if target.Mode == ModeTag {
		bookmarks = artwork.BookmarkCount
	}
	return storage.AssetFilename(artwork.ID, artwork.Title, ext, bookmarks)
}

func (c *Crawler) recordAssetFailure(id, filename string, err *Error) {
	c.logger.WithError(err).Error("asset not saved")
	c.mu.Lock()
	c.summary.AssetFailures++
	c.emitLocked(Event{
		Type:     EventAssetFailed,
		ItemID:   id,
		Filename: filename,
		Err:      err,
	})
	c.mu.Unlock()
}

// gate blocks while the run is paused and reports whether processing
// may continue
func (c *Crawler) gate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.state == StatePaused {
		c.cond.Wait()
	}
	return c.state == StateRunning
}

func (c *Crawler) newSource(target Target) listingSource {
	if target.Mode == ModeArtist {
		return &creatorSource{client: c.client, artistID: target.Identifier}
	}
	return &tagSource{client: c.client, tag: target.Identifier, maxPages: target.MaxPages}
}

// validate rejects malformed targets before any network traffic
func (c *Crawler) validate(target Target) error {
	if target.Identifier == "" {
		return NewError(ErrorKindSetup, "", "target identifier is empty", nil)
	}

	switch target.Mode {
	case ModeArtist:
		for _, r := range target.Identifier {
			if r < '0' || r > '9' {
				return NewError(ErrorKindSetup, "",
					fmt.Sprintf("artist id must be numeric, got %q", target.Identifier), nil)
			}
		}
	case ModeTag:
		if target.MaxPages < 1 {
			return NewError(ErrorKindSetup, "", "max pages must be at least 1", nil)
		}
	default:
		return NewError(ErrorKindSetup, "", fmt.Sprintf("unknown mode %q", target.Mode), nil)
	}

	if target.MinBookmarks < 0 {
		return NewError(ErrorKindSetup, "", "minimum bookmark count must not be negative", nil)
	}

	return nil
}

// openRunDir creates the destination directory for this run
func (c *Crawler) openRunDir(target Target) (*storage.Manager, error) {
	dir := c.opts.OutputDir
	if c.opts.CreateRunFolders {
		date := time.Now().Format("20060102")
		var name string
		if target.Mode == ModeArtist {
			name = fmt.Sprintf("artist_%s_%s", target.Identifier, date)
		} else {
			name = fmt.Sprintf("tag_%s_%s", storage.SanitizeTitle(target.Identifier), date)
		}
		dir = filepath.Join(dir, name)
	}

	store, err := storage.NewManager(dir)
	if err != nil {
		return nil, NewError(ErrorKindSetup, "", "output directory not writable", err)
	}
	return store, nil
}

// fail moves the run to the failed state before it ever started
func (c *Crawler) fail(err error) {
	c.mu.Lock()
	c.state = StateFailed
	c.emitLocked(Event{Type: EventStateChanged, State: StateFailed, Err: err})
	c.emitLocked(Event{Type: EventRunFinished, State: StateFailed, Err: err})
	c.mu.Unlock()
	close(c.events)
}

// finish moves the run to its terminal state and closes the event
// stream. A cancelled run stays cancelled.
func (c *Crawler) finish() {
	c.mu.Lock()
	if c.state != StateCancelled {
		c.state = StateCompleted
		c.emitLocked(Event{Type: EventStateChanged, State: StateCompleted})
	}
	c.emitLocked(Event{Type: EventRunFinished, State: c.state})
	summary := c.summary
	state := c.state
	c.mu.Unlock()
	close(c.events)

	c.logger.InfoWithFields("crawl finished", map[string]interface{}{
		"state":      string(state),
		"seen":       summary.TotalSeen,
		"downloaded": summary.TotalDownloaded,
		"unresolved": summary.Unresolved,
	})
}

// emitLocked sends an event without blocking. The caller holds c.mu.
func (c *Crawler) emitLocked(ev Event) {
	ev.Time = time.Now()
	select {
	case c.events <- ev:
	default:
	}
}
