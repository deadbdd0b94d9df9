package pixiv

import (
	"encoding/json"
	"sort"
	"strconv"
)

// aiTypeGenerated is the aiType sentinel Pixiv sets on works it has
// flagged as AI-generated. Lower values mean undeclared or human-made.
const aiTypeGenerated = 2

// AIFlag classifies an artwork's AI-generation marker
type AIFlag int

const (
	AIUnknown AIFlag = iota
	AIHuman
	AIGenerated
)

func (f AIFlag) String() string {
	switch f {
	case AIHuman:
		return "human"
	case AIGenerated:
		return "ai"
	default:
		return "unknown"
	}
}

// Artwork is the resolved metadata for one work. Immutable once
// resolved; fetched once per work per crawl pass.
type Artwork struct {
	ID            string
	Title         string
	BookmarkCount int
	PageCount     int
	AI            AIFlag
	Tags          []string
	OriginalURL   string
}

// apiResponse is the envelope every ajax endpoint wraps its payload in
type apiResponse struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Body    json.RawMessage `json:"body"`
}

// artworkBody is the raw per-work metadata payload
type artworkBody struct {
	ID            string      `json:"illustId"`
	Title         string      `json:"title"`
	BookmarkCount int         `json:"bookmarkCount"`
	PageCount     int         `json:"pageCount"`
	AIType        int         `json:"aiType"`
	Tags          tagsWrapper `json:"tags"`
	URLs          artworkURLs `json:"urls"`
}

type tagsWrapper struct {
	Tags []tagEntry `json:"tags"`
}

type tagEntry struct {
	Tag string `json:"tag"`
}

type artworkURLs struct {
	Original string `json:"original"`
}

// toArtwork maps the raw payload into the domain type
func (b *artworkBody) toArtwork(id string) *Artwork {
	art := &Artwork{
		ID:            b.ID,
		Title:         b.Title,
		BookmarkCount: b.BookmarkCount,
		PageCount:     b.PageCount,
		AI:            AIHuman,
		OriginalURL:   b.URLs.Original,
	}
	if art.ID == "" {
		art.ID = id
	}
	if art.PageCount < 1 {
		art.PageCount = 1
	}
	if b.AIType == aiTypeGenerated {
		art.AI = AIGenerated
	}
	for _, t := range b.Tags.Tags {
		art.Tags = append(art.Tags, t.Tag)
	}
	return art
}

// profileBody is the full-catalog payload for one artist
type profileBody struct {
	Illusts illustIndex `json:"illusts"`
}

// illustIndex is a map of artwork ID to an opaque stub. Pixiv encodes
// an empty catalog as [] instead of {}, so decoding tolerates both.
type illustIndex map[string]json.RawMessage

func (idx *illustIndex) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		*idx = illustIndex{}
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*idx = m
	return nil
}

// IDs returns the artwork IDs in the index, newest first. The source
// payload is a JSON object, so ordering is recovered by sorting the
// numeric IDs descending.
func (idx illustIndex) IDs() []string {
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA != nil || errB != nil {
			return ids[i] > ids[j]
		}
		return a > b
	})
	return ids
}

// searchBody is one page of tag search results
type searchBody struct {
	IllustManga searchResults `json:"illustManga"`
}

type searchResults struct {
	Data  []searchEntry `json:"data"`
	Total int           `json:"total"`
}

type searchEntry struct {
	ID string `json:"id"`
}

// SearchPage is one resolved page of a tag search
type SearchPage struct {
	IDs   []string
	Total int
}
