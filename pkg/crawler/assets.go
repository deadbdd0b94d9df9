package crawler

import (
	"fmt"
	"strings"

	"pixcrawl/pkg/pixiv"
)

// pageMarker is the page index token embedded in the original asset URL
// of the first page. Multi page URLs are derived by substituting the
// index into this marker.
const pageMarker = "_p0"

// AssetRef is one downloadable asset of an artwork
type AssetRef struct {
	Index int
	URL   string
}

// ExpandAssets derives the full list of asset URLs for an artwork. A
// single page work maps directly to its original URL. Multi page works
// require exactly one page marker in the URL; anything else means the
// host changed its layout and the item cannot be expanded.
func ExpandAssets(artwork *pixiv.Artwork) ([]AssetRef, error) {
	if artwork.PageCount <= 1 {
		return []AssetRef{{Index: 0, URL: artwork.OriginalURL}}, nil
	}

	if n := strings.Count(artwork.OriginalURL, pageMarker); n != 1 {
		return nil, NewError(ErrorKindAssetPattern, artwork.ID,
			fmt.Sprintf("expected one %q marker in asset URL, found %d: %s",
				pageMarker, n, artwork.OriginalURL), nil)
	}

	prefix, suffix, _ := strings.Cut(artwork.OriginalURL, pageMarker)

	refs := make([]AssetRef, 0, artwork.PageCount)
	for i := 0; i < artwork.PageCount; i++ {
		refs = append(refs, AssetRef{
			Index: i,
			URL:   fmt.Sprintf("%s_p%d%s", prefix, i, suffix),
		})
	}
	return refs, nil
}
