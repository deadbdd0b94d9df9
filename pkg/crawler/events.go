package crawler

import "time"

// EventType identifies what happened during a run
type EventType string

const (
	EventStateChanged    EventType = "state_changed"
	EventPageStarted     EventType = "page_started"
	EventItemAccepted    EventType = "item_accepted"
	EventItemRejected    EventType = "item_rejected"
	EventItemUnresolved  EventType = "item_unresolved"
	EventAssetDownloaded EventType = "asset_downloaded"
	EventAssetFailed     EventType = "asset_failed"
	EventRunFinished     EventType = "run_finished"
)

// Event is one progress notification emitted by a running crawl.
// Fields are populated depending on the event type.
type Event struct {
	Type     EventType
	Time     time.Time
	ItemID   string
	Title    string
	Page     int
	Total    int // size of the matching set, on page events
	Reason   RejectReason
	Filename string
	State    State
	Err      error
}

// Summary is a point-in-time snapshot of run counters
type Summary struct {
	State            State
	CurrentPage      int
	TotalMatched     int
	TotalSeen        int
	TotalDownloaded  int
	RejectedAI       int
	RejectedBooks    int
	RejectedKeywords int
	RejectedManga    int
	Unresolved       int
	AssetFailures    int
}

// record updates the rejection counters for one reason
func (s *Summary) record(reason RejectReason) {
	switch reason {
	case RejectAIGenerated:
		s.RejectedAI++
	case RejectLowBookmarks:
		s.RejectedBooks++
	case RejectExcludedKeyword:
		s.RejectedKeywords++
	case RejectManga:
		s.RejectedManga++
	}
}
