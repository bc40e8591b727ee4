// Package executor drives a reconciliation run: it streams source items,
// matches them against the duplicate index, asks the merge engine for a
// verdict, dispatches batched writes and records every outcome in the run
// log.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/logging"
	"github.com/tobiasrohr/FInal-merger/pkg/mapping"
	"github.com/tobiasrohr/FInal-merger/pkg/merge"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
	"github.com/tobiasrohr/FInal-merger/pkg/retry"
	"github.com/tobiasrohr/FInal-merger/pkg/runlog"
)

var errLimitReached = errors.New("item limit reached")

// Executor runs reconciliations between two boards.
type Executor struct {
	client board.Client
	idx    *index.Index
	cfg    Config
	opts   *options
}

// New validates the configuration and creates an executor. All returned
// errors are setup errors.
func New(client board.Client, idx *index.Index, cfg Config, opts ...Option) (*Executor, error) {
	if client == nil {
		return nil, errors.NewConfigError("executor", "board client is required", nil)
	}
	if idx == nil {
		return nil, errors.NewConfigError("executor", "duplicate index is required", nil)
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	spec := mapping.Spec{Mappings: cfg.Mappings}
	if err := spec.Normalize(); err != nil {
		return nil, errors.WrapValidation("mappings", err)
	}
	if err := spec.Validate(o.transforms); err != nil {
		return nil, err
	}
	cfg.Mappings = spec.Mappings
	return &Executor{client: client, idx: idx, cfg: cfg, opts: o}, nil
}

// RunID returns the ID written to every log entry of this executor's runs.
func (e *Executor) RunID() string { return e.opts.runID }

type pendingItem struct {
	entry runlog.Entry
	op    *board.Operation
}

type run struct {
	*Executor
	ctx     context.Context
	logger  *zerolog.Logger
	log     *runlog.Log
	engine  merge.Engine
	summary *Summary
	pending []pendingItem
	queued  int
	seen    map[string]struct{}
}

// Run processes the source board. Per-item failures are logged and
// counted; the returned error is non-nil only when the run could not
// continue. On cancellation the items decided so far are flushed before
// the context error is returned.
func (e *Executor) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: e.opts.runID, DryRun: e.cfg.DryRun}

	log, err := runlog.Open(e.cfg.LogPath)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := log.Close(); cerr != nil {
			logging.FromContext(ctx).Warn().Err(cerr).Msg("failed to close run log")
		}
	}()
	if !e.cfg.DryRun && log.HasDryRun() {
		return summary, errors.NewConfigError("runlog",
			fmt.Sprintf("%s contains dry-run entries; use a fresh log for a live run", e.cfg.LogPath), nil)
	}

	ctx = logging.WithRunID(ctx, e.opts.runID)
	ctx = logging.WithBoard(ctx, "source", e.cfg.SourceBoard)
	ctx = logging.WithBoard(ctx, "target", e.cfg.TargetBoard)
	logger := logging.FromContext(ctx)
	logger.Info().
		Bool("dry_run", e.cfg.DryRun).
		Int("limit", e.cfg.Limit).
		Int("batch_size", e.cfg.BatchSize).
		Int("already_logged", log.Len()).
		Int("targets", e.idx.Len()).
		Msg("starting run")

	r := &run{
		Executor: e,
		ctx:      ctx,
		logger:   logger,
		log:      log,
		summary:  &summary,
		seen:     make(map[string]struct{}),
	}

	err = e.client.FetchAll(ctx, e.cfg.SourceBoard, r.page)
	switch {
	case err == nil:
		err = r.flush(ctx)
	case errors.Is(err, errLimitReached):
		summary.LimitReached = true
		err = r.flush(ctx)
	case ctx.Err() != nil:
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
		if ferr := r.flush(flushCtx); ferr != nil {
			logger.Warn().Err(ferr).Int("pending", len(r.pending)).Msg("could not flush pending items after cancellation")
		}
		cancel()
		err = ctx.Err()
	}

	summary.Duration = time.Since(start)
	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("ambiguous", summary.Ambiguous).
		Int("already_processed", summary.AlreadyProcessed).
		Int("errors", summary.Errors).
		Int("follow_ups", summary.FollowUps).
		Int("follow_up_errors", summary.FollowUpErrors).
		Int("api_calls", summary.APICalls).
		Dur("duration", summary.Duration).
		Msg("run finished")
	return summary, err
}

func (r *run) page(page []records.Record) error {
	r.summary.PagesFetched++
	for _, src := range page {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if _, dup := r.seen[src.ID]; dup || r.log.Has(src.ID) {
			r.summary.AlreadyProcessed++
			continue
		}
		if r.cfg.Limit > 0 && len(r.seen) >= r.cfg.Limit {
			return errLimitReached
		}
		r.seen[src.ID] = struct{}{}
		if err := r.process(src); err != nil {
			return err
		}
		if r.queued >= r.cfg.BatchSize || len(r.pending) >= constants.MaxBatchSize*4 {
			if err := r.flush(r.ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) process(src records.Record) error {
	match := r.idx.Lookup(src)
	entry := runlog.Entry{
		RunID:      r.opts.runID,
		Timestamp:  utc.Now(),
		SourceID:   src.ID,
		SourceName: src.Name,
		Dimension:  string(match.Dimension),
		Key:        match.Key,
		DryRun:     r.cfg.DryRun,
	}

	if err := match.Err(src.ID); errors.IsAmbiguous(err) {
		entry.Action = runlog.ActionSkipped
		entry.Reason = runlog.ReasonAmbiguous
		entry.Candidates = match.Candidates
		r.logger.Warn().
			Err(err).
			Str("source_id", src.ID).
			Str("dimension", string(match.Dimension)).
			Strs("candidates", match.Candidates).
			Msg("ambiguous match, skipping for manual review")
		r.pending = append(r.pending, pendingItem{entry: entry})
		return nil
	}

	var target *records.Record
	if match.Status == index.StatusMatched {
		t, ok := r.idx.Target(match.TargetID)
		if !ok {
			entry.Action = runlog.ActionError
			entry.Error = errors.NewNotFoundError("indexed target", match.TargetID).Error()
			r.pending = append(r.pending, pendingItem{entry: entry})
			return nil
		}
		target = &t
		entry.TargetID = t.ID
	}

	engine, err := r.mergeEngine()
	if err != nil {
		return err
	}
	v := engine.Decide(src, target, r.cfg.Mappings)
	entry.Decisions = decisions(v.Decisions)
	entry.Patch = v.Patch.Texts()

	if excluded := v.Excluded(); len(excluded) > 0 {
		fields := make([]string, len(excluded))
		for i, d := range excluded {
			fields[i] = string(d.Target)
		}
		entry.Reason = "excluded fields: " + strings.Join(fields, ", ")
		r.logger.Debug().Str("source_id", src.ID).Strs("fields", fields).Msg("fields excluded from patch")
	}

	switch v.Action {
	case merge.ActionSkip:
		entry.Action = runlog.ActionSkipped
		if entry.Reason != "" {
			entry.Reason += "; "
		}
		entry.Reason += runlog.ReasonAlreadyCorrect
		r.pending = append(r.pending, pendingItem{entry: entry})
	case merge.ActionCreate:
		r.queue(entry, board.Operation{SourceID: src.ID, Name: v.Name, Patch: v.Patch})
	case merge.ActionUpdate:
		r.queue(entry, board.Operation{SourceID: src.ID, ItemID: target.ID, Name: target.Name, Patch: v.Patch})
	}
	return nil
}

func (r *run) queue(entry runlog.Entry, op board.Operation) {
	r.pending = append(r.pending, pendingItem{entry: entry, op: &op})
	r.queued++
}

// mergeEngine builds the engine on first use so that a run with nothing
// left to do never fetches column metadata.
func (r *run) mergeEngine() (merge.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}
	set := merge.OptionSet{}
	for _, m := range r.cfg.Mappings {
		if !m.ResolveOptions || m.Strategy == mapping.Skip {
			continue
		}
		var opts []records.Option
		err := r.withRetry(r.ctx, "fetch_metadata", func(ctx context.Context) error {
			var err error
			opts, err = r.client.FetchMetadata(ctx, r.cfg.TargetBoard, m.Target)
			return err
		})
		if err != nil {
			return nil, errors.NewConfigError("executor", fmt.Sprintf("cannot load options of column %s", m.Target), err)
		}
		set.Add(m.Target, opts)
	}
	engine, err := merge.New(merge.WithTransforms(r.opts.transforms), merge.WithOptionSet(set))
	if err != nil {
		return nil, err
	}
	r.engine = engine
	return engine, nil
}

// flush dispatches queued operations and appends all pending entries to
// the run log. Nothing is logged when dispatch fails fatally, so a resumed
// run redoes the batch. Source bookkeeping runs after the target writes;
// its entries are logged even when it fails fatally.
func (r *run) flush(ctx context.Context) error {
	if len(r.pending) == 0 {
		return nil
	}
	ops := make([]board.Operation, 0, r.queued)
	for _, p := range r.pending {
		if p.op != nil {
			ops = append(ops, *p.op)
		}
	}

	outcomes := make([]board.Outcome, len(ops))
	if len(ops) > 0 {
		if r.cfg.DryRun {
			for i, op := range ops {
				outcomes[i] = board.Outcome{SourceID: op.SourceID, ItemID: op.ItemID}
			}
		} else {
			var err error
			if outcomes, err = r.dispatch(ctx, r.cfg.TargetBoard, ops); err != nil {
				return err
			}
		}
	}

	entries := make([]runlog.Entry, 0, len(r.pending))
	k := 0
	for _, p := range r.pending {
		e := p.entry
		if p.op != nil {
			out := outcomes[k]
			k++
			switch {
			case out.Err != nil:
				e.Action = runlog.ActionError
				e.Error = out.Err.Error()
			case p.op.IsCreate():
				e.Action = runlog.ActionCreated
				e.TargetID = out.ItemID
			default:
				e.Action = runlog.ActionUpdated
			}
		}
		entries = append(entries, e)
	}
	followErr := r.followUp(ctx, entries)
	if err := r.log.Append(entries...); err != nil {
		return err
	}

	for _, e := range entries {
		r.summary.count(e)
		r.opts.recorder.ItemProcessed(e.Action, e.DryRun)
		if e.Action == runlog.ActionError {
			r.logger.Warn().Str("source_id", e.SourceID).Str("error", e.Error).Msg("item failed")
		}
		if e.FollowUpError != "" {
			r.logger.Warn().Str("source_id", e.SourceID).Str("error", e.FollowUpError).Msg("source bookkeeping failed")
		}
	}
	r.logger.Debug().Int("entries", len(entries)).Int("operations", len(ops)).Msg("batch flushed")
	r.pending = r.pending[:0]
	r.queued = 0
	return followErr
}

// followUp moves and links the source items of entries whose target write
// succeeded or whose target was already correct. Results are recorded on
// the entries. A fatal error marks every entry not yet handled.
func (r *run) followUp(ctx context.Context, entries []runlog.Entry) error {
	fu := r.cfg.FollowUp
	if r.cfg.DryRun || !fu.Enabled() {
		return nil
	}
	var (
		ops []board.Operation
		at  []int
	)
	for i, e := range entries {
		if op, ok := followUpOp(fu, e); ok {
			ops = append(ops, op)
			at = append(at, i)
		}
	}

	for start := 0; start < len(ops); start += r.cfg.BatchSize {
		end := min(start+r.cfg.BatchSize, len(ops))
		out, err := r.dispatch(ctx, r.cfg.SourceBoard, ops[start:end])
		if err != nil {
			for _, i := range at[start:] {
				entries[i].FollowUpError = err.Error()
			}
			return err
		}
		for k, o := range out {
			e := &entries[at[start+k]]
			if o.Err != nil {
				e.FollowUpError = o.Err.Error()
				continue
			}
			e.Group = ops[start+k].GroupID
			e.Linked = len(ops[start+k].Patch) > 0
		}
	}
	return nil
}

func followUpOp(fu mapping.FollowUp, e runlog.Entry) (board.Operation, bool) {
	op := board.Operation{SourceID: e.SourceID, ItemID: e.SourceID}
	switch {
	case e.TargetID == "":
		return op, false
	case e.Action == runlog.ActionCreated:
		op.GroupID = fu.NewGroup
	case e.Action == runlog.ActionUpdated, e.Action == runlog.ActionSkipped:
		op.GroupID = fu.DuplicateGroup
	default:
		return op, false
	}
	if fu.LinkColumn != "" {
		op.Patch = records.Patch{fu.LinkColumn: records.RelationValue(e.TargetID)}
	}
	return op, op.GroupID != "" || len(op.Patch) > 0
}

// dispatch sends ops to a board as one batch. When the batch as a whole
// fails for a reason other than rate limiting, every operation is retried
// on its own so one bad item cannot sink the others. A batch answered with
// the wrong number of outcomes is fatal and never retried.
func (r *run) dispatch(ctx context.Context, boardID string, ops []board.Operation) ([]board.Outcome, error) {
	out, err := r.apply(ctx, boardID, ops)
	if err == nil && len(out) != len(ops) {
		return nil, fmt.Errorf("%w: %d operations, %d outcomes", errors.ErrOutcomeMismatch, len(ops), len(out))
	}
	if err == nil {
		return out, nil
	}
	if fatal(err) {
		return nil, err
	}
	r.logger.Warn().Err(err).Int("operations", len(ops)).Msg("batch failed, dispatching items one by one")

	out = make([]board.Outcome, len(ops))
	for i, op := range ops {
		single, err := r.apply(ctx, boardID, []board.Operation{op})
		switch {
		case err != nil && fatal(err):
			return nil, err
		case err != nil:
			out[i] = board.Outcome{SourceID: op.SourceID, Err: &errors.ItemError{ItemID: op.SourceID, Operation: op.Kind(), Err: err}}
		case len(single) != 1:
			out[i] = board.Outcome{SourceID: op.SourceID, Err: &errors.ItemError{ItemID: op.SourceID, Operation: op.Kind(), Err: errors.New("no outcome returned")}}
		default:
			out[i] = single[0]
		}
	}
	return out, nil
}

func (r *run) apply(ctx context.Context, boardID string, ops []board.Operation) ([]board.Outcome, error) {
	var out []board.Outcome
	err := r.withRetry(ctx, "apply_batch", func(ctx context.Context) error {
		var err error
		out, err = r.client.ApplyBatch(ctx, boardID, ops)
		return err
	})
	return out, err
}

func (r *run) withRetry(ctx context.Context, operation string, op func(context.Context) error) error {
	notify := func(err error, wait time.Duration, attempt int) {
		r.summary.RateLimitWaits++
		r.opts.recorder.RateLimited(wait)
		r.logger.Warn().Err(err).Str("operation", operation).Int("attempt", attempt).Dur("wait", wait).Msg("rate limited, backing off")
	}
	return retry.Do(ctx, r.cfg.Retry, r.opts.gate, notify, func(ctx context.Context) error {
		r.summary.APICalls++
		r.opts.recorder.APICall(operation)
		return op(ctx)
	})
}

// fatal reports errors that stop the run instead of failing one item.
func fatal(err error) bool {
	return errors.Is(err, errors.ErrRetriesExhausted) ||
		errors.Is(err, errors.ErrCircuitOpen) ||
		errors.Is(err, errors.ErrOutcomeMismatch) ||
		errors.IsRateLimited(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.IsSetup(err) ||
		errors.Is(err, errors.ErrAPIKeyInvalid)
}

func decisions(in []merge.FieldDecision) []runlog.Decision {
	if len(in) == 0 {
		return nil
	}
	out := make([]runlog.Decision, len(in))
	for i, d := range in {
		out[i] = runlog.Decision{
			Source:   string(d.Source),
			Target:   string(d.Target),
			Strategy: string(d.Strategy),
			Outcome:  string(d.Outcome),
			Value:    d.Value,
			Previous: d.Previous,
			Reason:   d.Reason,
		}
	}
	return out
}
