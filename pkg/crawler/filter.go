package crawler

import (
	"strings"

	"pixcrawl/pkg/pixiv"
)

// RejectReason explains why an item was excluded from download
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectAIGenerated     RejectReason = "ai_generated"
	RejectLowBookmarks    RejectReason = "low_bookmarks"
	RejectExcludedKeyword RejectReason = "excluded_keyword"
	RejectManga           RejectReason = "manga"
)

// mangaPageLimit is the page count above which an untagged work is
// treated as a manga upload
const mangaPageLimit = 10

// mangaKeywords are tag values that mark a work as manga regardless of
// its page count
var mangaKeywords = []string{"漫画", "4コマ", "4格漫画", "comic", "manga", "comics"}

// Filter decides which fetched items are worth downloading. Decisions
// depend only on the artwork fields, so the same input always yields
// the same reason.
type Filter struct {
	MinBookmarks     int
	ExcludedKeywords []string
}

// Decide returns the reason an artwork is rejected, or RejectNone when
// it should be downloaded. Checks run in a fixed order: generation flag
// first, then popularity, then keyword exclusions, then manga markers.
func (f *Filter) Decide(artwork *pixiv.Artwork) RejectReason {
	if artwork.AI == pixiv.AIGenerated {
		return RejectAIGenerated
	}

	if artwork.BookmarkCount < f.MinBookmarks {
		return RejectLowBookmarks
	}

	if f.matchesKeyword(artwork.Tags, f.ExcludedKeywords) {
		return RejectExcludedKeyword
	}

	if f.matchesKeyword(artwork.Tags, mangaKeywords) || artwork.PageCount > mangaPageLimit {
		return RejectManga
	}

	return RejectNone
}

// matchesKeyword reports whether any tag contains any of the keywords,
// case insensitively
func (f *Filter) matchesKeyword(tags, keywords []string) bool {
	for _, tag := range tags {
		lowered := strings.ToLower(tag)
		for _, keyword := range keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				return true
			}
		}
	}
	return false
}
