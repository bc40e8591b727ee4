// Package constants provides shared limits, timeouts and defaults used
// throughout boardmerge. Values that bound API usage live here so the
// executor, the transport and the CLI agree on them.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the timeout for a single GraphQL request.
	DefaultHTTPTimeout = 60 * time.Second

	// ShutdownTimeout bounds cleanup after an interrupted run.
	ShutdownTimeout = 5 * time.Second

	// ColumnCacheTTL is how long board column metadata is reused before it
	// is fetched again.
	ColumnCacheTTL = 30 * time.Minute
)

// File permission constants
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x).
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--).
	FilePermissions = 0644
)

// Batching and paging limits
const (
	// MaxBatchSize is the largest number of mutations sent in one API call.
	MaxBatchSize = 50

	// DefaultBatchSize is the batch size used when none is configured.
	DefaultBatchSize = MaxBatchSize

	// DefaultPageSize is the number of items requested per items_page call.
	DefaultPageSize = 500

	// FetchItemsChunk is the number of item IDs requested per lookup query.
	FetchItemsChunk = 100

	// MaxConcurrentFetches bounds parallel read requests during validation.
	MaxConcurrentFetches = 4
)

// Rate limiting and retry constants
const (
	// DefaultRequestsPerMinute paces outgoing API calls.
	DefaultRequestsPerMinute = 60

	// BurstSize is the token bucket burst for request pacing.
	BurstSize = 5

	// RetryBaseDelay is the first backoff interval after a rate limit.
	RetryBaseDelay = 2 * time.Second

	// RetryMaxDelay caps a single backoff interval.
	RetryMaxDelay = 2 * time.Minute

	// DefaultRetryAfter is assumed when a 429 carries no Retry-After header.
	DefaultRetryAfter = 60 * time.Second

	// BreakerFailureThreshold is the number of consecutive server failures
	// after which API requests are suspended.
	BreakerFailureThreshold = 5

	// BreakerCooldown is how long requests stay suspended before a trial request.
	BreakerCooldown = 30 * time.Second
)

// Validation defaults
const (
	// DefaultSampleSize is the number of log entries the validator checks.
	DefaultSampleSize = 50
)

// Monthly salaries are paid this many times a year when deriving a
// yearly figure.
const SalaryMonthsPerYear = 18
