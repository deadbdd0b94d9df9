package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFilenameLen is the longest composed filename written to disk.
// Anything longer collapses to the id-only form to stay inside
// filesystem limits.
const maxFilenameLen = 200

// invalidFilenameChars are stripped from titles before they are used in
// filenames
const invalidFilenameChars = `\/*?:"<>|`

// Manager owns the destination directory of one crawl run. Writes are
// create-or-overwrite: re-deriving the same filename on a later run
// silently replaces the file, and no manifest is kept — the directory
// listing itself is the persisted state.
type Manager struct {
	dir string
}

// NewManager creates the destination directory if absent and returns a
// manager for it
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{dir: dir}, nil
}

// SaveAsset writes the full byte buffer under the given filename,
// overwriting any existing file. There is no partial-write recovery.
func (m *Manager) SaveAsset(filename string, data []byte) error {
	path := filepath.Join(m.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	return nil
}

// Dir returns the destination directory path
func (m *Manager) Dir() string {
	return m.dir
}

// SanitizeTitle strips characters that are invalid in filenames on
// common filesystems
func SanitizeTitle(title string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidFilenameChars, r) {
			return -1
		}
		return r
	}, title)
}

// AssetFilename composes the on-disk name for a single-asset work:
// {id}_{sanitizedTitle}[_{bookmarks}].{ext}. A negative bookmarks value
// omits the count. Names exceeding the length bound fall back to the
// id-only form.
func AssetFilename(id, title, ext string, bookmarks int) string {
	safeTitle := SanitizeTitle(title)

	var name, short string
	if bookmarks >= 0 {
		name = fmt.Sprintf("%s_%s_%d.%s", id, safeTitle, bookmarks, ext)
		short = fmt.Sprintf("%s_%d.%s", id, bookmarks, ext)
	} else {
		name = fmt.Sprintf("%s_%s.%s", id, safeTitle, ext)
		short = fmt.Sprintf("%s.%s", id, ext)
	}

	if len(name) > maxFilenameLen {
		return short
	}
	return name
}

// ExtensionFromURL returns the file extension of an asset URL, without
// the leading dot. Only the last path segment is considered so dots in
// the hostname never leak in.
func ExtensionFromURL(url string) string {
	seg := url
	if idx := strings.LastIndex(seg, "/"); idx >= 0 {
		seg = seg[idx+1:]
	}
	idx := strings.LastIndex(seg, ".")
	if idx < 0 || idx == len(seg)-1 {
		return "bin"
	}
	return seg[idx+1:]
}
