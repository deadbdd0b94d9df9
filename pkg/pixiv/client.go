package pixiv

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pixcrawl/pkg/logger"
)

// Error types for Pixiv API operations
type ErrorType string

const (
	ErrorTypeTransport ErrorType = "transport"
	ErrorTypeAPI       ErrorType = "api"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeServer    ErrorType = "server"
	ErrorTypeParsing   ErrorType = "parsing"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a Pixiv API error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("pixiv %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// Client is the outbound client for the Pixiv ajax endpoints. It is not
// used for asset downloads, which require a different header set.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new Pixiv API client. The cookie carries the
// session credential; the engine treats it as opaque.
func NewClient(timeout time.Duration, cookie, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: BaseURL,
		headers: map[string]string{
			"User-Agent": userAgent,
			"Referer":    BaseURL + "/",
			"Accept":     "application/json",
			"Cookie":     cookie,
		},
		logger: log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetBaseURL points the client at a different host. Used by tests and
// mirror proxies.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// Cookie returns the session cookie the client was built with
func (c *Client) Cookie() string {
	return c.headers["Cookie"]
}

// doRequest performs a GET request with the configured headers
func (c *Client) doRequest(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &Error{
			Type:    ErrorTypeTransport,
			Message: fmt.Sprintf("transport error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus maps HTTP status codes to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &Error{
			Type:    ErrorTypeAuth,
			Message: "authentication rejected, cookie may be invalid or expired",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{
			Type:    ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Type:    ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 500:
		return &Error{
			Type:    ErrorTypeServer,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	default:
		return &Error{
			Type:    ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// getBody performs a GET request, unwraps the ajax envelope and returns
// the payload. A success-shaped response carrying the source error flag
// is surfaced as an API error.
func (c *Client) getBody(url string) (json.RawMessage, error) {
	resp, err := c.doRequest(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			Type:    ErrorTypeTransport,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse API response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse response: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if envelope.Error {
		msg := envelope.Message
		if msg == "" {
			msg = "source reported an error"
		}
		return nil, &Error{
			Type:    ErrorTypeAPI,
			Message: msg,
			Code:    resp.StatusCode,
		}
	}

	return envelope.Body, nil
}

// FetchArtistCatalog fetches the complete list of artwork IDs for one
// artist. The endpoint returns the whole catalog in a single response.
func (c *Client) FetchArtistCatalog(artistID string) ([]string, error) {
	c.logger.DebugWithFields("fetching artist catalog", map[string]interface{}{
		"artist_id": artistID,
	})

	body, err := c.getBody(buildProfileAllURL(c.baseURL, artistID))
	if err != nil {
		return nil, err
	}

	var profile profileBody
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse catalog: %v", err),
		}
	}

	ids := profile.Illusts.IDs()
	c.logger.InfoWithFields("artist catalog fetched", map[string]interface{}{
		"artist_id": artistID,
		"works":     len(ids),
	})

	return ids, nil
}

// SearchByTag fetches one page of tag search results, newest first.
func (c *Client) SearchByTag(tag string, page int) (*SearchPage, error) {
	c.logger.DebugWithFields("fetching search page", map[string]interface{}{
		"tag":  tag,
		"page": page,
	})

	body, err := c.getBody(buildSearchURL(c.baseURL, tag, page))
	if err != nil {
		return nil, err
	}

	var search searchBody
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse search results: %v", err),
		}
	}

	result := &SearchPage{Total: search.IllustManga.Total}
	for _, entry := range search.IllustManga.Data {
		result.IDs = append(result.IDs, entry.ID)
	}

	return result, nil
}

// FetchArtwork fetches the metadata for one artwork.
func (c *Client) FetchArtwork(artworkID string) (*Artwork, error) {
	body, err := c.getBody(buildArtworkURL(c.baseURL, artworkID))
	if err != nil {
		return nil, err
	}

	var raw artworkBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &Error{
			Type:    ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse artwork metadata: %v", err),
		}
	}

	return raw.toArtwork(artworkID), nil
}
