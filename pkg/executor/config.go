package executor

import (
	"time"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
)

// Config describes one reconciliation run.
type Config struct {
	SourceBoard string
	TargetBoard string
	// Mappings are evaluated in order for every source item.
	Mappings []mapping.Mapping
	// Limit caps the number of items processed by this run. Items already
	// in the run log do not count. Zero means no limit.
	Limit int
	// DryRun computes and logs verdicts without calling ApplyBatch.
	DryRun  bool
	LogPath string
	// BatchSize is the number of operations per ApplyBatch call.
	BatchSize int
	Retry     retry.Policy
	// FollowUp moves and links source items after their target write
	// succeeded. Dry runs never apply it.
	FollowUp mapping.FollowUp
}

func (c *Config) validate() error {
	if c.SourceBoard == "" {
		return errors.NewConfigError("executor", "source board is required", nil)
	}
	if c.TargetBoard == "" {
		return errors.NewConfigError("executor", "target board is required", nil)
	}
	if c.LogPath == "" {
		return errors.NewConfigError("executor", "run log path is required", nil)
	}
	if len(c.Mappings) == 0 {
		return errors.NewValidationError("mappings", nil, "at least one mapping is required")
	}
	if c.Limit < 0 {
		return errors.NewValidationError("limit", c.Limit, "must not be negative")
	}
	if c.BatchSize == 0 {
		c.BatchSize = constants.DefaultBatchSize
	}
	if c.BatchSize < 0 || c.BatchSize > constants.MaxBatchSize {
		return errors.NewValidationError("batch_size", c.BatchSize, "must be between 1 and 50")
	}
	if c.Retry == (retry.Policy{}) {
		c.Retry = retry.DefaultPolicy()
	}
	return c.Retry.Validate()
}

// Summary reports the counts of a run. APICalls counts metadata and write
// calls; source pages are counted separately in PagesFetched.
type Summary struct {
	RunID            string        `json:"run_id"`
	DryRun           bool          `json:"dry_run"`
	Created          int           `json:"created"`
	Updated          int           `json:"updated"`
	Skipped          int           `json:"skipped"`
	Ambiguous        int           `json:"ambiguous"`
	AlreadyProcessed int           `json:"already_processed"`
	Errors           int           `json:"errors"`
	FollowUps        int           `json:"follow_ups"`
	FollowUpErrors   int           `json:"follow_up_errors"`
	APICalls         int           `json:"api_calls"`
	PagesFetched     int           `json:"pages_fetched"`
	RateLimitWaits   int           `json:"rate_limit_waits"`
	LimitReached     bool          `json:"limit_reached"`
	Duration         time.Duration `json:"duration"`
}

// Processed returns the number of items this run wrote entries for.
func (s Summary) Processed() int {
	return s.Created + s.Updated + s.Skipped + s.Errors
}

func (s *Summary) count(e runlog.Entry) {
	switch e.Action {
	case runlog.ActionCreated:
		s.Created++
	case runlog.ActionUpdated:
		s.Updated++
	case runlog.ActionSkipped:
		s.Skipped++
		if e.Reason == runlog.ReasonAmbiguous {
			s.Ambiguous++
		}
	case runlog.ActionError:
		s.Errors++
	}
	switch {
	case e.FollowUpError != "":
		s.FollowUpErrors++
	case e.Group != "" || e.Linked:
		s.FollowUps++
	}
}

// Recorder observes run progress, typically for metrics.
type Recorder interface {
	ItemProcessed(action runlog.Action, dryRun bool)
	APICall(operation string)
	RateLimited(wait time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ItemProcessed(runlog.Action, bool) {}
func (nopRecorder) APICall(string)                    {}
func (nopRecorder) RateLimited(time.Duration)         {}
