package crawler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixcrawl/internal/downloader"
	"pixcrawl/pkg/pixiv"
	"pixcrawl/pkg/ratelimit"
)

// artworkFixture describes one artwork served by the fake host
type artworkFixture struct {
	title     string
	bookmarks int
	pages     int
	aiType    int
	tags      []string
	assetName string // defaults to {id}_p0.jpg
	status    int    // non-zero makes the metadata endpoint fail
}

// fakePixiv serves the ajax endpoints and the image host from a single
// test server
type fakePixiv struct {
	server        *httptest.Server
	mu            sync.Mutex
	calls         map[string]int
	catalog       []string
	searchPages   map[int][]string
	searchTotal   int         // reported matching set size, defaults to the page size
	searchStatus  map[int]int // non-zero fails the search endpoint for that page
	profileStatus int         // non-zero fails the profile endpoint
	artworks      map[string]artworkFixture
}

func newFakePixiv() *fakePixiv {
	f := &fakePixiv{
		calls:        make(map[string]int),
		searchPages:  make(map[int][]string),
		searchStatus: make(map[int]int),
		artworks:     make(map[string]artworkFixture),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakePixiv) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakePixiv) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakePixiv) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/ajax/user/"):
		if f.profileStatus != 0 {
			w.WriteHeader(f.profileStatus)
			return
		}
		illusts := make(map[string]interface{})
		for _, id := range f.catalog {
			illusts[id] = nil
		}
		writeEnvelope(w, map[string]interface{}{"illusts": illusts})

	case strings.HasPrefix(r.URL.Path, "/ajax/search/artworks/"):
		page, _ := strconv.Atoi(r.URL.Query().Get("p"))
		if status := f.searchStatus[page]; status != 0 {
			w.WriteHeader(status)
			return
		}
		data := make([]map[string]string, 0)
		for _, id := range f.searchPages[page] {
			data = append(data, map[string]string{"id": id})
		}
		total := f.searchTotal
		if total == 0 {
			total = len(data)
		}
		writeEnvelope(w, map[string]interface{}{
			"illustManga": map[string]interface{}{"data": data, "total": total},
		})

	case strings.HasPrefix(r.URL.Path, "/ajax/illust/"):
		id := strings.TrimPrefix(r.URL.Path, "/ajax/illust/")
		fix, ok := f.artworks[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if fix.status != 0 {
			w.WriteHeader(fix.status)
			return
		}
		tags := make([]map[string]string, 0)
		for _, tag := range fix.tags {
			tags = append(tags, map[string]string{"tag": tag})
		}
		assetName := fix.assetName
		if assetName == "" {
			assetName = id + "_p0.jpg"
		}
		writeEnvelope(w, map[string]interface{}{
			"illustId":      id,
			"title":         fix.title,
			"bookmarkCount": fix.bookmarks,
			"pageCount":     fix.pages,
			"aiType":        fix.aiType,
			"tags":          map[string]interface{}{"tags": tags},
			"urls":          map[string]string{"original": f.server.URL + "/img/" + assetName},
		})

	case strings.HasPrefix(r.URL.Path, "/img/"):
		fmt.Fprintf(w, "img:%s", r.URL.Path)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeEnvelope(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   false,
		"message": "",
		"body":    body,
	})
}

func newTestCrawler(f *fakePixiv, dir string, interval time.Duration) *Crawler {
	client := pixiv.NewClient(5*time.Second, "PHPSESSID=test", "TestAgent/1.0", nil)
	client.SetBaseURL(f.server.URL)

	executor := downloader.NewExecutor(5*time.Second, "TestDownloadAgent/1.0", "PHPSESSID=test", nil)
	limiter := ratelimit.NewFixedInterval(interval)

	return New(client, executor, limiter, Options{OutputDir: dir}, nil)
}

func drainEvents(c *Crawler) []Event {
	var events []Event
	for ev := range c.Events() {
		events = append(events, ev)
	}
	return events
}

func TestCrawlerArtistRun(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	f.catalog = []string{"101", "102", "103"}
	for _, id := range f.catalog {
		f.artworks[id] = artworkFixture{title: "work " + id, bookmarks: 2000, pages: 1}
	}

	dir := t.TempDir()
	c := newTestCrawler(f, dir, time.Millisecond)

	err := c.Run(Target{Mode: ModeArtist, Identifier: "111", MinBookmarks: 1000})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())

	summary := c.Summary()
	assert.Equal(t, 3, summary.TotalMatched)
	assert.Equal(t, 3, summary.TotalSeen)
	assert.Equal(t, 3, summary.TotalDownloaded)
	assert.Equal(t, 0, summary.Unresolved)

	assert.Equal(t, 1, f.callCount("/ajax/user/111/profile/all"))
	for _, id := range f.catalog {
		assert.Equal(t, 1, f.callCount("/ajax/illust/"+id))
		assert.Equal(t, 1, f.callCount("/img/"+id+"_p0.jpg"))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// artist mode filenames carry no bookmark count
	_, err = os.Stat(filepath.Join(dir, "101_work 101.jpg"))
	assert.NoError(t, err)

	events := drainEvents(c)
	last := events[len(events)-1]
	assert.Equal(t, EventRunFinished, last.Type)
	assert.Equal(t, StateCompleted, last.State)
}

func TestCrawlerTagRun(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	f.searchPages[1] = []string{"201", "202", "203", "204", "205"}
	f.searchTotal = 42
	f.artworks["201"] = artworkFixture{title: "scenic view", bookmarks: 1500, pages: 1}
	f.artworks["202"] = artworkFixture{title: "sketch", bookmarks: 100, pages: 1}
	f.artworks["203"] = artworkFixture{status: http.StatusNotFound}
	f.artworks["204"] = artworkFixture{title: "triptych", bookmarks: 1200, pages: 3}
	f.artworks["205"] = artworkFixture{title: "generated", bookmarks: 3000, pages: 1, aiType: 2}

	dir := t.TempDir()
	c := newTestCrawler(f, dir, time.Millisecond)

	err := c.Run(Target{Mode: ModeTag, Identifier: "scenery", MinBookmarks: 1000, MaxPages: 1})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())

	// the search endpoint reports the full matching set, not the page size
	summary := c.Summary()
	assert.Equal(t, 42, summary.TotalMatched)
	assert.Equal(t, 5, summary.TotalSeen)
	assert.Equal(t, 4, summary.TotalDownloaded)
	assert.Equal(t, 1, summary.RejectedAI)
	assert.Equal(t, 1, summary.RejectedBooks)
	assert.Equal(t, 1, summary.Unresolved)

	var pageEvent Event
	for _, ev := range drainEvents(c) {
		if ev.Type == EventPageStarted {
			pageEvent = ev
		}
	}
	assert.Equal(t, 1, pageEvent.Page)
	assert.Equal(t, 42, pageEvent.Total)

	assert.Equal(t, 1, f.callCount("/ajax/search/artworks/scenery"))

	// tag mode filenames carry the bookmark count; multi page works use
	// the page index form
	for _, name := range []string{
		"201_scenic view_1500.jpg",
		"204_p0.jpg",
		"204_p1.jpg",
		"204_p2.jpg",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestCrawlerFirstListingFailureAbsorbed(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()
	f.profileStatus = http.StatusInternalServerError

	c := newTestCrawler(f, t.TempDir(), time.Millisecond)

	// a failing listing ends the run empty but clean
	err := c.Run(Target{Mode: ModeArtist, Identifier: "55", MinBookmarks: 1000})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())

	summary := c.Summary()
	assert.Equal(t, 0, summary.TotalSeen)
	assert.Equal(t, 0, summary.TotalDownloaded)

	events := drainEvents(c)
	last := events[len(events)-1]
	assert.Equal(t, EventRunFinished, last.Type)
	assert.Equal(t, StateCompleted, last.State)
	assert.NoError(t, last.Err)
}

func TestCrawlerLaterListingFailureKeepsResults(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	f.searchPages[1] = []string{"601", "602"}
	f.searchStatus[2] = http.StatusInternalServerError
	for _, id := range f.searchPages[1] {
		f.artworks[id] = artworkFixture{title: "work", bookmarks: 2000, pages: 1}
	}

	dir := t.TempDir()
	c := newTestCrawler(f, dir, time.Millisecond)

	err := c.Run(Target{Mode: ModeTag, Identifier: "art", MinBookmarks: 1000, MaxPages: 3})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())

	// page 1 results survive the page 2 failure
	summary := c.Summary()
	assert.Equal(t, 2, summary.TotalDownloaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCrawlerUnparseableAssetPattern(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	f.catalog = []string{"900", "901"}
	f.artworks["900"] = artworkFixture{
		title: "odd layout", bookmarks: 2000, pages: 4,
		assetName: "900_page0.jpg",
	}
	f.artworks["901"] = artworkFixture{title: "fine", bookmarks: 2000, pages: 1}

	dir := t.TempDir()
	c := newTestCrawler(f, dir, time.Millisecond)

	err := c.Run(Target{Mode: ModeArtist, Identifier: "42", MinBookmarks: 1000})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, c.State())

	summary := c.Summary()
	assert.Equal(t, 1, summary.Unresolved)
	assert.Equal(t, 1, summary.TotalDownloaded)

	var patternErr *Error
	for _, ev := range drainEvents(c) {
		if ev.Type == EventItemUnresolved && ev.ItemID == "900" {
			patternErr, _ = ev.Err.(*Error)
		}
	}
	require.NotNil(t, patternErr)
	assert.Equal(t, ErrorKindAssetPattern, patternErr.Kind)
}

func TestCrawlerPauseResume(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	f.catalog = []string{"301", "302", "303"}
	for _, id := range f.catalog {
		f.artworks[id] = artworkFixture{title: "work", bookmarks: 2000, pages: 1}
	}

	dir := t.TempDir()
	c := newTestCrawler(f, dir, 30*time.Millisecond)

	paused := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- c.Run(Target{Mode: ModeArtist, Identifier: "7", MinBookmarks: 0})
	}()
	go func() {
		once := sync.Once{}
		for ev := range c.Events() {
			if ev.Type == EventAssetDownloaded {
				once.Do(func() {
					c.Pause()
					close(paused)
				})
			}
		}
	}()

	<-paused

	// let any in-flight item finish, then verify no further traffic
	time.Sleep(300 * time.Millisecond)
	before := f.totalCalls()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, before, f.totalCalls())
	assert.Equal(t, StatePaused, c.State())

	c.Resume()
	require.NoError(t, <-done)
	assert.Equal(t, StateCompleted, c.State())

	// every item was processed exactly once across the pause
	for _, id := range f.catalog {
		assert.Equal(t, 1, f.callCount("/ajax/illust/"+id))
		assert.Equal(t, 1, f.callCount("/img/"+id+"_p0.jpg"))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestCrawlerCancel(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	f.searchPages[1] = []string{"401", "402", "403", "404", "405"}
	for _, id := range f.searchPages[1] {
		f.artworks[id] = artworkFixture{title: "work", bookmarks: 2000, pages: 1}
	}

	dir := t.TempDir()
	c := newTestCrawler(f, dir, 30*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- c.Run(Target{Mode: ModeTag, Identifier: "art", MinBookmarks: 0, MaxPages: 1})
	}()

	once := sync.Once{}
	var finished Event
	for ev := range c.Events() {
		if ev.Type == EventAssetDownloaded {
			once.Do(c.Cancel)
		}
		if ev.Type == EventRunFinished {
			finished = ev
		}
	}

	require.NoError(t, <-done)
	assert.Equal(t, StateCancelled, c.State())
	assert.Equal(t, StateCancelled, finished.State)

	// the in-flight item finished, the rest never started
	summary := c.Summary()
	assert.GreaterOrEqual(t, summary.TotalDownloaded, 1)
	assert.Less(t, summary.TotalDownloaded, 5)
}

func TestCrawlerSetupErrors(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()

	tests := []struct {
		name   string
		target Target
	}{
		{"empty identifier", Target{Mode: ModeArtist}},
		{"non numeric artist id", Target{Mode: ModeArtist, Identifier: "abc"}},
		{"tag without page ceiling", Target{Mode: ModeTag, Identifier: "art"}},
		{"unknown mode", Target{Mode: "feed", Identifier: "x"}},
		{"negative bookmark floor", Target{Mode: ModeArtist, Identifier: "1", MinBookmarks: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCrawler(f, t.TempDir(), time.Millisecond)

			err := c.Run(tt.target)
			require.Error(t, err)

			crawlErr, ok := err.(*Error)
			require.True(t, ok)
			assert.Equal(t, ErrorKindSetup, crawlErr.Kind)
			assert.Equal(t, StateFailed, c.State())

			// no network traffic before setup validation passes
			assert.Equal(t, 0, f.totalCalls())
		})
	}
}

func TestCrawlerRunOnlyOnce(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()
	f.catalog = []string{}

	c := newTestCrawler(f, t.TempDir(), time.Millisecond)
	require.NoError(t, c.Run(Target{Mode: ModeArtist, Identifier: "5"}))

	err := c.Run(Target{Mode: ModeArtist, Identifier: "5"})
	require.Error(t, err)
	crawlErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrorKindSetup, crawlErr.Kind)
}

func TestCrawlerRunFolders(t *testing.T) {
	f := newFakePixiv()
	defer f.server.Close()
	f.catalog = []string{}

	base := t.TempDir()
	client := pixiv.NewClient(5*time.Second, "c", "ua", nil)
	client.SetBaseURL(f.server.URL)
	executor := downloader.NewExecutor(5*time.Second, "ua", "", nil)
	c := New(client, executor, ratelimit.NewFixedInterval(time.Millisecond), Options{
		OutputDir:        base,
		CreateRunFolders: true,
	}, nil)

	require.NoError(t, c.Run(Target{Mode: ModeArtist, Identifier: "99"}))

	date := time.Now().Format("20060102")
	info, err := os.Stat(filepath.Join(base, "artist_99_"+date))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
