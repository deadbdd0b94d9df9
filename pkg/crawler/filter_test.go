package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pixcrawl/pkg/pixiv"
)

func TestFilterDecide(t *testing.T) {
	filter := &Filter{
		MinBookmarks:     1000,
		ExcludedKeywords: []string{"R-18"},
	}

	tests := []struct {
		name    string
		artwork pixiv.Artwork
		want    RejectReason
	}{
		{
			name: "accepted",
			artwork: pixiv.Artwork{
				BookmarkCount: 1500,
				PageCount:     3,
				AI:            pixiv.AIHuman,
				Tags:          []string{"風景", "illustration"},
			},
			want: RejectNone,
		},
		{
			name: "ai generated",
			artwork: pixiv.Artwork{
				BookmarkCount: 5000,
				AI:            pixiv.AIGenerated,
			},
			want: RejectAIGenerated,
		},
		{
			name: "ai flag wins over low bookmarks",
			artwork: pixiv.Artwork{
				BookmarkCount: 10,
				AI:            pixiv.AIGenerated,
				Tags:          []string{"漫画"},
			},
			want: RejectAIGenerated,
		},
		{
			name: "below bookmark threshold",
			artwork: pixiv.Artwork{
				BookmarkCount: 999,
				AI:            pixiv.AIHuman,
			},
			want: RejectLowBookmarks,
		},
		{
			name: "excluded keyword",
			artwork: pixiv.Artwork{
				BookmarkCount: 2000,
				AI:            pixiv.AIHuman,
				Tags:          []string{"R-18", "original"},
			},
			want: RejectExcludedKeyword,
		},
		{
			name: "manga tag",
			artwork: pixiv.Artwork{
				BookmarkCount: 2000,
				AI:            pixiv.AIHuman,
				Tags:          []string{"漫画"},
			},
			want: RejectManga,
		},
		{
			name: "manga tag case insensitive",
			artwork: pixiv.Artwork{
				BookmarkCount: 2000,
				AI:            pixiv.AIHuman,
				Tags:          []string{"My Comic Series"},
			},
			want: RejectManga,
		},
		{
			name: "manga by page count",
			artwork: pixiv.Artwork{
				BookmarkCount: 2000,
				PageCount:     11,
				AI:            pixiv.AIHuman,
			},
			want: RejectManga,
		},
		{
			name: "page count at limit is not manga",
			artwork: pixiv.Artwork{
				BookmarkCount: 2000,
				PageCount:     10,
				AI:            pixiv.AIHuman,
			},
			want: RejectNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filter.Decide(&tt.artwork))
			// same input, same decision
			assert.Equal(t, tt.want, filter.Decide(&tt.artwork))
		})
	}
}

func TestFilterZeroThresholdAcceptsEverything(t *testing.T) {
	filter := &Filter{MinBookmarks: 0}

	artwork := &pixiv.Artwork{BookmarkCount: 0, AI: pixiv.AIHuman}
	assert.Equal(t, RejectNone, filter.Decide(artwork))
}
