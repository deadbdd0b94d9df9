package pixiv

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Pixiv
	BaseURL = "https://www.pixiv.net"

	// ProfileAllEndpoint returns every work belonging to one artist in a
	// single response
	ProfileAllEndpoint = "/ajax/user/%s/profile/all"

	// SearchEndpoint is the paginated tag search endpoint
	SearchEndpoint = "/ajax/search/artworks/"

	// ArtworkEndpoint is the per-work metadata endpoint
	ArtworkEndpoint = "/ajax/illust/%s"
)

// GetProfileAllURL constructs the URL for fetching an artist's full catalog
func GetProfileAllURL(artistID string) string {
	return buildProfileAllURL(BaseURL, artistID)
}

// GetSearchURL constructs the URL for one page of a tag search, ordered
// by recency
func GetSearchURL(tag string, page int) string {
	return buildSearchURL(BaseURL, tag, page)
}

// GetArtworkURL constructs the URL for fetching one artwork's metadata
func GetArtworkURL(artworkID string) string {
	return buildArtworkURL(BaseURL, artworkID)
}

// GetArtworkPageURL constructs the canonical page URL for an artwork.
// The image host validates this as the Referer on asset requests.
func GetArtworkPageURL(artworkID string) string {
	return fmt.Sprintf("%s/artworks/%s", BaseURL, artworkID)
}

func buildProfileAllURL(base, artistID string) string {
	return base + fmt.Sprintf(ProfileAllEndpoint, artistID)
}

func buildSearchURL(base, tag string, page int) string {
	encoded := url.PathEscape(tag)

	params := url.Values{}
	params.Set("word", tag)
	params.Set("order", "date_d")
	params.Set("mode", "all")
	params.Set("p", fmt.Sprintf("%d", page))
	params.Set("s_mode", "s_tag")
	params.Set("type", "all")

	return fmt.Sprintf("%s%s%s?%s", base, SearchEndpoint, encoded, params.Encode())
}

func buildArtworkURL(base, artworkID string) string {
	return base + fmt.Sprintf(ArtworkEndpoint, artworkID)
}
