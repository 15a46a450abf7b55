// Package errors defines the error taxonomy used throughout the extractor.
//
// Only ConfigError, AuthError, PostRetrievalError and CommentRetrievalError
// are returned from Extractor.Fetch. The remaining types describe transport
// and parsing failures and are wrapped as the cause of one of those four.
package errors

import (
	"fmt"
	"strings"
)

// ConfigError indicates a problem with the extractor configuration or
// request options. It is raised before any remote call is attempted.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates an authentication or authorization failure (401/403).
type AuthError struct {
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Body contains the raw response body (if available)
	Body string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	parts := []string{}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}
	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("body: %q", e.Body))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}
	if len(parts) == 0 {
		return "auth error"
	}
	return "auth error: " + strings.Join(parts, ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports the status code carried by the error, if any.
func (e *AuthError) HTTPStatus() int {
	return e.StatusCode
}

// PostRetrievalError indicates the root post could not be retrieved: it is
// missing, private, deleted, or every retry attempt failed.
type PostRetrievalError struct {
	// PostID is the post that was being fetched
	PostID string
	// Message contains the detailed error message
	Message string
	// Err is the triggering cause
	Err error
}

func (e *PostRetrievalError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.PostID != "" {
		return fmt.Sprintf("post retrieval error for %s: %s", e.PostID, msg)
	}
	return fmt.Sprintf("post retrieval error: %s", msg)
}

func (e *PostRetrievalError) Unwrap() error {
	return e.Err
}

// CommentRetrievalError indicates the comment tree could not be retrieved
// after retries were exhausted.
type CommentRetrievalError struct {
	// PostID is the post whose comments were being fetched
	PostID string
	// Message contains the detailed error message
	Message string
	// Err is the triggering cause
	Err error
}

func (e *CommentRetrievalError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.PostID != "" {
		return fmt.Sprintf("comment retrieval error for %s: %s", e.PostID, msg)
	}
	return fmt.Sprintf("comment retrieval error: %s", msg)
}

func (e *CommentRetrievalError) Unwrap() error {
	return e.Err
}

// TransientError marks a failure that is expected to succeed on retry.
// It never escapes a successful retry loop.
type TransientError struct {
	// StatusCode is the HTTP status code, zero when not from a response
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *TransientError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("transient error (status %d): %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("transient error: %s", msg)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// HTTPStatus reports the status code carried by the error, if any.
func (e *TransientError) HTTPStatus() int {
	return e.StatusCode
}

// RequestError indicates a problem with making an API request.
type RequestError struct {
	// Operation is the name of the API operation that failed
	Operation string
	// URL is the URL that was being accessed
	URL string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" && e.URL != "" {
		return fmt.Sprintf("request error during %s to %s: %s", e.Operation, e.URL, msg)
	} else if e.Operation != "" {
		return fmt.Sprintf("request error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("request error: %s", msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError indicates a problem parsing the API response.
type ParseError struct {
	// Operation is the name of the API operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// APIError represents a non-2xx response from the Reddit API.
type APIError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// ErrorCode is the error code from Reddit (if available)
	ErrorCode string
	// Message is the error message from Reddit
	Message string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("reddit API error (status %d, code %s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
}

// HTTPStatus reports the status code of the failed response.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}
