package bookmarks

import (
	"errors"
)

var (
	ErrNotConfigured       = errors.New("bookmark feed is not configured")
	ErrUpstreamUnavailable = errors.New("could not contact upstream")
	ErrUpstreamMalformed   = errors.New("upstream response malformed")
)

const (
	MessageNotConfigured = "Bookmark feed is not configured properly."
	MessageUnavailable   = "Unable to contact the bookmark service."
	MessageMalformed     = "Response is not correct, maybe the bookmark service is down or its API has changed."
)

// LoadError reports why a load produced no bookmarks. Reason is one of the
// Err* sentinels above.
type LoadError struct {
	Reason error
	URL    string
	Err    error
}

func NewLoadError(reason error, url string, err error) *LoadError {
	return &LoadError{
		Reason: reason,
		URL:    url,
		Err:    err,
	}
}

func (e *LoadError) Error() string {
	msg := e.Reason.Error()
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamMalformed)
}

// Message returns the placeholder shown instead of the bookmark list.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return MessageNotConfigured
	case errors.Is(err, ErrUpstreamMalformed):
		return MessageMalformed
	default:
		return MessageUnavailable
	}
}
