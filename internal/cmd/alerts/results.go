package alerts

import (
	"fmt"

	"github.com/tobiasrohr/FInal-merger/pkg/executor"
	"github.com/tobiasrohr/FInal-merger/pkg/validator"
)

// maxDetails caps the detail lines of one alert.
const maxDetails = 5

// ForSummary returns the notices for a finished merge run.
func ForSummary(s executor.Summary, logPath string) []*Alert {
	var out []*Alert
	if s.Errors > 0 {
		out = append(out, New(LevelError, "%d items failed; their entries in %s carry the error", s.Errors, logPath).
			WithDetails("Fix the cause and rerun with a fresh log to retry them."))
	}
	if s.Ambiguous > 0 {
		out = append(out, New(LevelWarning, "%d items matched more than one target and were skipped", s.Ambiguous).
			WithDetails("The candidates are listed in the run log."))
	}
	if s.FollowUpErrors > 0 {
		out = append(out, New(LevelWarning, "%d source items could not be moved or linked", s.FollowUpErrors).
			WithDetails("Their target writes stand; follow_up_error in the run log names the cause."))
	}
	if s.LimitReached {
		out = append(out, New(LevelInfo, "limit reached; rerun with the same log to continue"))
	}
	if s.DryRun {
		out = append(out, New(LevelInfo, "dry run: nothing was written; use a fresh log for the live run"))
	}
	if s.Errors == 0 && !s.DryRun && !s.LimitReached {
		out = append(out, New(LevelSuccess, "run %s complete: %d created, %d updated", s.RunID, s.Created, s.Updated))
	}
	return out
}

// ForReport returns the notices for a validation report.
func ForReport(r validator.Report) []*Alert {
	if r.Sampled == 0 {
		return []*Alert{New(LevelInfo, "no live writes to validate")}
	}
	var out []*Alert
	if r.Missing > 0 {
		a := New(LevelError, "%d of %d sampled items no longer exist", r.Missing, r.Sampled)
		for _, it := range r.Items {
			if it.Status == validator.StatusMissing && len(a.Details) < maxDetails {
				a.WithDetails(fmt.Sprintf("source %s -> target %s", it.SourceID, it.TargetID))
			}
		}
		out = append(out, a)
	}
	if r.Mismatched > 0 {
		out = append(out, New(LevelWarning, "%d of %d sampled items differ from the run log", r.Mismatched, r.Sampled))
	}
	if r.Missing == 0 && r.Mismatched == 0 {
		out = append(out, New(LevelSuccess, "all %d sampled items confirmed", r.Sampled))
	}
	return out
}
