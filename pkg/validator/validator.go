// Package validator samples a run log and checks the logged writes against
// the live target board. It reports discrepancies and never corrects them.
package validator

import (
	"context"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
)

// Status is the verdict for one sampled entry.
type Status string

// Entry verdicts.
const (
	StatusConfirmed  Status = "confirmed"
	StatusMismatched Status = "mismatched"
	StatusMissing    Status = "missing"
)

// FieldMismatch is one logged field whose live text differs.
type FieldMismatch struct {
	Field    string `json:"field" yaml:"field"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
}

// ItemResult is the check of one sampled entry.
type ItemResult struct {
	SourceID   string          `json:"source_id" yaml:"source_id"`
	SourceName string          `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	TargetID   string          `json:"target_id" yaml:"target_id"`
	Action     runlog.Action   `json:"action" yaml:"action"`
	Status     Status          `json:"status" yaml:"status"`
	Mismatches []FieldMismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
}

// Report summarizes a validation.
type Report struct {
	Board      string        `json:"board" yaml:"board"`
	Eligible   int           `json:"eligible" yaml:"eligible"`
	Sampled    int           `json:"sampled" yaml:"sampled"`
	Confirmed  int           `json:"confirmed" yaml:"confirmed"`
	Mismatched int           `json:"mismatched" yaml:"mismatched"`
	Missing    int           `json:"missing" yaml:"missing"`
	Items      []ItemResult  `json:"items" yaml:"items"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// ConfirmationRate returns the share of sampled entries confirmed, in
// percent.
func (r Report) ConfirmationRate() float64 {
	if r.Sampled == 0 {
		return 0
	}
	return float64(r.Confirmed) * 100 / float64(r.Sampled)
}

type options struct {
	rng         *rand.Rand
	concurrency int
	chunk       int
}

// Option configures Validate.
type Option func(*options)

// WithSeed makes sampling reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithConcurrency bounds the number of concurrent fetches.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithChunkSize sets how many items one fetch requests.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunk = n
		}
	}
}

// Validate draws up to sampleSize live created or updated entries
// uniformly at random, or all of them when sampleSize is zero or larger
// than the eligible set, and compares every logged patch field with the
// live item.
func Validate(ctx context.Context, client board.Client, boardID string, entries []runlog.Entry, sampleSize int, opts ...Option) (Report, error) {
	start := time.Now()
	o := &options{
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		concurrency: constants.MaxConcurrentFetches,
		chunk:       constants.FetchItemsChunk,
	}
	for _, opt := range opts {
		opt(o)
	}
	if client == nil {
		return Report{}, errors.NewConfigError("validator", "board client is required", nil)
	}
	if boardID == "" {
		return Report{}, errors.NewConfigError("validator", "target board is required", nil)
	}

	eligible := make([]runlog.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Wrote() && e.TargetID != "" {
			eligible = append(eligible, e)
		}
	}
	sample := draw(o.rng, eligible, sampleSize)
	report := Report{Board: boardID, Eligible: len(eligible), Sampled: len(sample)}

	live, err := fetch(ctx, client, boardID, targetIDs(sample), o)
	if err != nil {
		return report, err
	}

	for _, e := range sample {
		res := check(e, live)
		switch res.Status {
		case StatusConfirmed:
			report.Confirmed++
		case StatusMismatched:
			report.Mismatched++
		case StatusMissing:
			report.Missing++
		}
		report.Items = append(report.Items, res)
	}
	report.Duration = time.Since(start)

	logging.FromContext(ctx).Info().
		Str("board", boardID).
		Int("sampled", report.Sampled).
		Int("confirmed", report.Confirmed).
		Int("mismatched", report.Mismatched).
		Int("missing", report.Missing).
		Msg("validation finished")
	return report, nil
}

func draw(rng *rand.Rand, entries []runlog.Entry, n int) []runlog.Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	out := make([]runlog.Entry, len(entries))
	copy(out, entries)
	// Partial Fisher-Yates: the first n positions are a uniform sample.
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

func targetIDs(entries []runlog.Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.TargetID]; ok {
			continue
		}
		seen[e.TargetID] = struct{}{}
		ids = append(ids, e.TargetID)
	}
	sort.Strings(ids)
	return ids
}

func fetch(ctx context.Context, client board.Client, boardID string, ids []string, o *options) (map[string]records.Record, error) {
	var (
		mu   sync.Mutex
		live = make(map[string]records.Record, len(ids))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for start := 0; start < len(ids); start += o.chunk {
		chunk := ids[start:min(start+o.chunk, len(ids))]
		g.Go(func() error {
			items, err := client.FetchItems(gctx, boardID, chunk)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, it := range items {
				live[it.ID] = it
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return live, nil
}

func check(e runlog.Entry, live map[string]records.Record) ItemResult {
	res := ItemResult{SourceID: e.SourceID, SourceName: e.SourceName, TargetID: e.TargetID, Action: e.Action}
	item, ok := live[e.TargetID]
	if !ok {
		res.Status = StatusMissing
		return res
	}

	fields := make([]string, 0, len(e.Patch))
	for f := range e.Patch {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		expected := strings.TrimSpace(e.Patch[f])
		actual := item.Text(records.FieldID(f))
		if expected != actual {
			res.Mismatches = append(res.Mismatches, FieldMismatch{Field: f, Expected: expected, Actual: actual})
		}
	}
	if len(res.Mismatches) > 0 {
		res.Status = StatusMismatched
	} else {
		res.Status = StatusConfirmed
	}
	return res
}
