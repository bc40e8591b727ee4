package index

import (
	"slices"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// Status classifies a lookup outcome.
type Status string

// Lookup outcomes.
const (
	StatusMatched   Status = "matched"
	StatusAmbiguous Status = "ambiguous"
	StatusNoMatch   Status = "no_match"
)

// MatchResult is the outcome of matching one source record.
type MatchResult struct {
	Status    Status    `json:"status"`
	Dimension Dimension `json:"dimension,omitempty"`
	Key       string    `json:"key,omitempty"`
	TargetID  string    `json:"target_id,omitempty"`
	// Candidates lists every conflicting target ID of an ambiguous match.
	Candidates []string `json:"candidates,omitempty"`
}

// Err returns an errors.AmbiguousMatchError for an ambiguous result and
// nil otherwise.
func (m MatchResult) Err(sourceID string) error {
	if m.Status != StatusAmbiguous {
		return nil
	}
	return &errors.AmbiguousMatchError{SourceID: sourceID, Dimension: string(m.Dimension), Candidates: m.Candidates}
}

// Lookup matches source against the index.
//
// Primary dimensions are consulted in Priority order and the first one with
// a hit decides. The result is ambiguous when that dimension yields more
// than one target, or when a later dimension also hits but does not agree
// on the chosen target. The name fallback is only consulted when nothing
// matched and the source has neither an email nor a reference key.
func (idx *Index) Lookup(source records.Record) MatchResult {
	keys := idx.config.Keys(source)

	var (
		chosen MatchResult
		found  bool
	)
	for _, dim := range Priority {
		key, ok := keys[dim]
		if !ok {
			continue
		}
		hits := idx.byKey[dim][key]
		if len(hits) == 0 {
			continue
		}

		if !found {
			found = true
			chosen = MatchResult{Status: StatusMatched, Dimension: dim, Key: key}
			if len(hits) > 1 {
				chosen.Status = StatusAmbiguous
				chosen.Candidates = sortedCopy(hits)
				return chosen
			}
			chosen.TargetID = hits[0]
			continue
		}

		if !slices.Contains(hits, chosen.TargetID) {
			candidates := append([]string{chosen.TargetID}, hits...)
			return MatchResult{
				Status:     StatusAmbiguous,
				Dimension:  chosen.Dimension,
				Key:        chosen.Key,
				Candidates: sortedCopy(candidates),
			}
		}
	}
	if found {
		return chosen
	}

	if key, ok := keys[DimensionName]; ok {
		_, hasEmail := keys[DimensionEmail]
		_, hasRef := keys[DimensionReference]
		if !hasEmail && !hasRef {
			hits := idx.byKey[DimensionName][key]
			switch {
			case len(hits) == 1:
				return MatchResult{Status: StatusMatched, Dimension: DimensionName, Key: key, TargetID: hits[0]}
			case len(hits) > 1:
				return MatchResult{Status: StatusAmbiguous, Dimension: DimensionName, Key: key, Candidates: sortedCopy(hits)}
			}
		}
	}

	return MatchResult{Status: StatusNoMatch}
}

func sortedCopy(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
