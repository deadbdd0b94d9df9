package downloader

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pixcrawl/pkg/logger"
)

// Error represents a failed asset fetch
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("download error (status %d): %s", e.StatusCode, e.Message)
}

// Executor fetches asset bytes from the image host. The host validates
// the Referer and session cookie, so requests carry a desktop-browser
// header set distinct from the API client's.
type Executor struct {
	httpClient *http.Client
	userAgent  string
	cookie     string
	logger     logger.Logger
}

// NewExecutor creates an asset download executor. The cookie is the same
// session credential used against the API endpoints; it is translated
// into discrete header fields the image host expects.
func NewExecutor(timeout time.Duration, userAgent, cookie string, log logger.Logger) *Executor {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Executor{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		cookie:    cookie,
		logger:    log,
	}
}

// Fetch downloads one asset. The referer must be the canonical page URL
// of the artwork the asset belongs to. No retry is attempted on failure.
func (e *Executor) Fetch(assetURL, referer string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	e.setHeaders(req, referer)

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.ErrorWithFields("asset request failed", map[string]interface{}{
			"url":   assetURL,
			"error": err.Error(),
		})
		return nil, &Error{Message: fmt.Sprintf("transport error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusForbidden {
			msg = "forbidden, referer or cookie validation likely failed"
		}
		e.logger.WarnWithFields("asset request rejected", map[string]interface{}{
			"url":    assetURL,
			"status": resp.StatusCode,
		})
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("failed to read asset body: %v", err),
		}
	}

	e.logger.DebugWithFields("asset downloaded", map[string]interface{}{
		"url":      assetURL,
		"size":     len(data),
		"duration": time.Since(start),
	})

	return data, nil
}

// setHeaders applies the spoofed browser header set plus the session
// cookie pairs as discrete header fields
func (e *Executor) setHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en-US;q=0.8,en;q=0.7,ja;q=0.6")
	req.Header.Set("sec-ch-ua", `"Chromium";v="96", "Google Chrome";v="96", ";Not A Brand";v="99"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"Windows"`)
	req.Header.Set("sec-fetch-dest", "image")
	req.Header.Set("sec-fetch-mode", "no-cors")
	req.Header.Set("sec-fetch-site", "cross-site")

	for key, value := range splitCookiePairs(e.cookie) {
		req.Header.Set(key, value)
	}
}

// splitCookiePairs breaks a "k=v; k2=v2" cookie string into its pairs.
// The image host checks individual fields rather than the combined
// Cookie header.
func splitCookiePairs(cookie string) map[string]string {
	pairs := make(map[string]string)
	for _, item := range strings.Split(cookie, "; ") {
		key, value, found := strings.Cut(item, "=")
		if !found || key == "" {
			continue
		}
		pairs[key] = value
	}
	return pairs
}
