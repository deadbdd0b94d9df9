package crawler

import "fmt"

// ErrorKind classifies a crawl failure
type ErrorKind string

const (
	// ErrorKindTransport covers network level failures against the remote host
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindAPI covers well formed responses whose envelope reports an error
	ErrorKindAPI ErrorKind = "api"

	// ErrorKindUnresolved marks an item whose detail lookup failed; the run
	// skips the item and continues
	ErrorKindUnresolved ErrorKind = "unresolved_item"

	// ErrorKindAssetPattern marks an item whose original asset URL does not
	// follow the expected page marker layout
	ErrorKindAssetPattern ErrorKind = "unparseable_asset_pattern"

	// ErrorKindPersist covers failures writing downloaded bytes to disk
	ErrorKindPersist ErrorKind = "persist"

	// ErrorKindSetup covers invalid targets and output directory failures
	// detected before the run starts
	ErrorKindSetup ErrorKind = "setup"
)

// Error is a classified crawl error, optionally tied to a single item
type Error struct {
	Kind    ErrorKind
	ItemID  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s error for item %s: %s", e.Kind, e.ItemID, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified crawl error
func NewError(kind ErrorKind, itemID, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		ItemID:  itemID,
		Message: message,
		Err:     err,
	}
}
