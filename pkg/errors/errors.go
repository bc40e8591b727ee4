// Package errors provides the error taxonomy for board reconciliation.
// Errors fall into four classes: transient rate limits that are retried,
// per-item data errors that are logged and skipped, ambiguous matches that
// are surfaced for manual review, and setup errors that abort a run before
// any item is processed.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Aliases for the standard library helpers so callers need one import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinel errors. Typed errors below report these through errors.Is.
var (
	// ErrNotFound indicates that a board, column or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed input or configuration.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAPIKeyRequired indicates that no API token was configured.
	ErrAPIKeyRequired = errors.New("API token required")

	// ErrAPIKeyInvalid indicates that the API rejected the token.
	ErrAPIKeyInvalid = errors.New("API token invalid")

	// ErrRateLimited indicates that the API asked the caller to slow down.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a server-side failure on the API.
	ErrUnavailable = errors.New("service unavailable")

	// ErrAmbiguous indicates that more than one target record matched.
	ErrAmbiguous = errors.New("ambiguous match")

	// ErrSetup marks failures that must abort a run before it starts.
	ErrSetup = errors.New("setup failure")

	// ErrRetriesExhausted indicates that a retry policy gave up.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrCircuitOpen indicates that requests are suspended after repeated
	// server failures.
	ErrCircuitOpen = errors.New("API circuit open")

	// ErrOutcomeMismatch indicates that a batch write returned a different
	// number of outcomes than operations sent.
	ErrOutcomeMismatch = errors.New("batch outcome count mismatch")
)

// NotFoundError reports a missing board, column or item.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure of configuration or input.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support. Validation failures are setup failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput || target == ErrSetup
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents a non-success answer from the board API.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Endpoint   string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return target == ErrAPIKeyInvalid
	case e.StatusCode >= 500:
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// RateLimitError is returned by API collaborators when a call was rejected
// for exceeding the rate or complexity budget. RetryAfter is the server's
// hint and may be zero.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s, retry after %s: %s", e.Service, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited by %s: %s", e.Service, e.Message)
}

// Is implements errors.Is support.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(service string, retryAfter time.Duration, message string) *RateLimitError {
	return &RateLimitError{Service: service, RetryAfter: retryAfter, Message: message}
}

// RetryAfter extracts the server's retry hint from err, if any.
func RetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	var api *APIError
	if errors.As(err, &api) {
		return api.RetryAfter
	}
	return 0
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ConfigError) Is(target error) bool {
	return target == ErrSetup
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// AmbiguousMatchError reports a source record matching several targets.
type AmbiguousMatchError struct {
	SourceID   string
	Dimension  string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("source item %s matches %d target items by %s: %v",
		e.SourceID, len(e.Candidates), e.Dimension, e.Candidates)
}

// Is implements errors.Is support.
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguous
}

// ItemError describes a failure scoped to a single item of a batch.
type ItemError struct {
	ItemID    string
	Operation string // "create", "update"
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("%s of item %s failed: %v", e.Operation, e.ItemID, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// ParseError represents an error when parsing data formats.
type ParseError struct {
	Format  string // "json", "yaml", "toml", "jsonl"
	File    string
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations.
type IOError struct {
	Operation string // "read", "write", "open", "sync", "close"
	Path      string
	Message   string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents a failed operation on a remote resource.
type ResourceError struct {
	Operation string // "fetch", "create", "update"
	Resource  string // "board", "item", "column"
	ID        string
	Message   string
	Err       error
}

func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents an authentication failure.
type AuthenticationError struct {
	Service string
	Method  string // "api_token"
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAPIKeyRequired || target == ErrAPIKeyInvalid || target == ErrSetup
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(service, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Service: service,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsAmbiguous checks if an error reports an ambiguous match.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguous)
}

// IsSetup checks if an error must abort a run before processing starts.
func IsSetup(err error) bool {
	return errors.Is(err, ErrSetup)
}

// WrapValidation wraps an error as a ValidationError.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
