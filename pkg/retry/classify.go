package retry

import (
	"context"
	"errors"
	"net"
	"strings"

	pkgerrs "github.com/jamesprial/go-reddit-extractor/pkg/errors"
)

// statusCoder is implemented by errors that carry an HTTP status code.
type statusCoder interface {
	HTTPStatus() int
}

var retryableStatus = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// transientPhrases are matched case-insensitively against error text when no
// structured status is available.
var transientPhrases = []string{
	"rate limit", "ratelimit",
	"timeout", "time-out", "timed out",
	"connection failed", "connection reset", "connection refused", "connection error",
	"temporary", "transient",
	"500", "502", "503", "504",
	"server error", "internal server error",
	"service unavailable",
	"try again later",
}

// IsRetryable reports whether err represents a transient condition that is
// expected to succeed on retry. A structured HTTP status, when present, is
// authoritative over the error text. nil, context cancellation and
// unrecognised errors are not retryable.
func IsRetryable(err error) (retryable bool) {
	if err == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			retryable = false
		}
	}()

	if errors.Is(err, context.Canceled) {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if status := sc.HTTPStatus(); status > 0 {
			return retryableStatus[status]
		}
	}

	if isVerdict(err) {
		return false
	}

	var transient *pkgerrs.TransientError
	if errors.As(err, &transient) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// isVerdict reports whether err is a domain error that settles the outcome
// on its own: a config or auth failure, or a retrieval error with no cause
// (for example a post that does not exist). Their text is never matched.
func isVerdict(err error) bool {
	var cfgErr *pkgerrs.ConfigError
	var authErr *pkgerrs.AuthError
	if errors.As(err, &cfgErr) || errors.As(err, &authErr) {
		return true
	}
	var postErr *pkgerrs.PostRetrievalError
	if errors.As(err, &postErr) && postErr.Err == nil {
		return true
	}
	var commentErr *pkgerrs.CommentRetrievalError
	if errors.As(err, &commentErr) && commentErr.Err == nil {
		return true
	}
	return false
}

// isAuthStatus reports whether err carries a 401 or 403 status.
func isAuthStatus(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		if status := sc.HTTPStatus(); status == 401 || status == 403 {
			return status, true
		}
	}
	return 0, false
}
