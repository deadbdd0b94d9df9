package crawler

import "pixcrawl/pkg/pixiv"

// listingSource enumerates candidate item IDs page by page. Both modes
// share the crawl loop; only the way pages are produced differs.
type listingSource interface {
	// NextPage returns the IDs of the given 1-based page, the size of
	// the full matching set as the endpoint reports it, and whether
	// more pages may follow
	NextPage(page int) (ids []string, total int, hasMore bool, err error)
}

// creatorSource lists the complete public catalog of one creator. The
// profile endpoint returns everything at once, so the catalog is a
// single page.
type creatorSource struct {
	client   *pixiv.Client
	artistID string
}

func (s *creatorSource) NextPage(page int) ([]string, int, bool, error) {
	if page > 1 {
		return nil, 0, false, nil
	}

	ids, err := s.client.FetchArtistCatalog(s.artistID)
	if err != nil {
		return nil, 0, false, err
	}
	return ids, len(ids), false, nil
}

// tagSource lists keyword search results up to a page ceiling
type tagSource struct {
	client   *pixiv.Client
	tag      string
	maxPages int
}

func (s *tagSource) NextPage(page int) ([]string, int, bool, error) {
	result, err := s.client.SearchByTag(s.tag, page)
	if err != nil {
		return nil, 0, false, err
	}

	hasMore := len(result.IDs) > 0 && page < s.maxPages
	return result.IDs, result.Total, hasMore, nil
}
