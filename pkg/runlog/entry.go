package runlog

import (
	"github.com/agentstation/utc"
	"github.com/google/uuid"
)

// Action is the terminal state of one processed source item.
type Action string

// Terminal actions.
const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
	ActionError   Action = "error"
)

// Skip reasons written by the executor.
const (
	ReasonAmbiguous      = "ambiguous match"
	ReasonAlreadyCorrect = "already correct"
)

// Decision is the logged form of one field decision.
type Decision struct {
	Source   string `json:"source,omitempty"`
	Target   string `json:"target"`
	Strategy string `json:"strategy,omitempty"`
	Outcome  string `json:"outcome"`
	Value    string `json:"value,omitempty"`
	Previous string `json:"previous,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Entry is one line of the run log.
type Entry struct {
	RunID      string     `json:"run_id"`
	Timestamp  utc.Time   `json:"timestamp"`
	SourceID   string     `json:"source_id"`
	SourceName string     `json:"source_name,omitempty"`
	TargetID   string     `json:"target_id,omitempty"`
	Dimension  string     `json:"dimension,omitempty"`
	Key        string     `json:"key,omitempty"`
	Candidates []string   `json:"candidates,omitempty"`
	Decisions  []Decision `json:"decisions,omitempty"`
	// Patch holds the display text of every field written.
	Patch  map[string]string `json:"patch,omitempty"`
	Action Action            `json:"action"`
	Reason string            `json:"reason,omitempty"`
	Error  string            `json:"error,omitempty"`
	DryRun bool              `json:"dry_run,omitempty"`
	// Group and Linked record the bookkeeping applied to the source item
	// after the target write. FollowUpError is set when it failed; the
	// target write stands either way.
	Group         string `json:"group,omitempty"`
	Linked        bool   `json:"linked,omitempty"`
	FollowUpError string `json:"follow_up_error,omitempty"`
}

// Wrote reports whether the entry describes a live write to the target
// board.
func (e Entry) Wrote() bool {
	return !e.DryRun && (e.Action == ActionCreated || e.Action == ActionUpdated)
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Counts tallies entries by action.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
	DryRun  int `json:"dry_run"`
}

// Count tallies entries by action.
func Count(entries []Entry) Counts {
	var c Counts
	for _, e := range entries {
		switch e.Action {
		case ActionCreated:
			c.Created++
		case ActionUpdated:
			c.Updated++
		case ActionSkipped:
			c.Skipped++
		case ActionError:
			c.Errors++
		}
		if e.DryRun {
			c.DryRun++
		}
	}
	return c
}
