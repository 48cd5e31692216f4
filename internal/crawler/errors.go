package crawler

import (
	"errors"
	"fmt"
)

// Fetch errors.
var (
	// ErrMalformedURL is returned when a page URL cannot be parsed or is not
	// an absolute http(s) URL. It is fatal for the category being paginated.
	ErrMalformedURL = errors.New("malformed page URL")

	// ErrUnexpectedStatus is returned when the source answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrTransientFetch is returned for network errors, timeouts and non-2xx statuses.
	ErrTransientFetch = errors.New("transient fetch error")
)

// FetchStatus classifies the outcome of fetching one page.
type FetchStatus int

const (
	// StatusOK indicates the page body was retrieved.
	StatusOK FetchStatus = iota

	// StatusTransient indicates a network error, timeout or non-2xx status.
	// The caller may skip the page and continue.
	StatusTransient

	// StatusFatal indicates the request could not be built at all.
	// Pagination of the category stops.
	StatusFatal
)

// String returns a human-readable description of the fetch status.
func (s FetchStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusTransient:
		return "transient error"
	case StatusFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Error returns the sentinel error for this status, or nil if OK.
func (s FetchStatus) Error() error {
	switch s {
	case StatusOK:
		return nil
	case StatusTransient:
		return ErrTransientFetch
	case StatusFatal:
		return ErrMalformedURL
	default:
		return fmt.Errorf("unknown fetch status: %d", s)
	}
}

// FetchError is returned by Fetcher.Fetch. It carries the classification of
// the failure alongside the underlying cause.
type FetchError struct {
	Status FetchStatus
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Status, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel error of the status.
func (e *FetchError) Is(target error) bool {
	return target != nil && errors.Is(e.Status.Error(), target)
}

// StatusOf returns the fetch status carried by err. A nil error is StatusOK
// and an error that is not a FetchError is treated as transient.
func StatusOf(err error) FetchStatus {
	if err == nil {
		return StatusOK
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return StatusTransient
}
