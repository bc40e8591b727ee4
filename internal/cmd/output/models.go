package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tobiasrohr/FInal-merger/pkg/board"
	"github.com/tobiasrohr/FInal-merger/pkg/executor"
	"github.com/tobiasrohr/FInal-merger/pkg/index"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
	"github.com/tobiasrohr/FInal-merger/pkg/validator"
)

// Print writes data in format. Table formats use layout when it is set.
func Print(w io.Writer, format Format, data any, layout func(wide bool) Data) error {
	if layout != nil && (format == FormatTable || format == FormatWide) {
		return render(w, layout(format == FormatWide))
	}
	return NewFormatter(format).Format(w, data)
}

// SummaryTable lays out the counts of a merge run.
func SummaryTable(s executor.Summary) func(bool) Data {
	return func(bool) Data {
		rows := [][]string{
			{"Run ID", s.RunID},
			{"Dry run", strconv.FormatBool(s.DryRun)},
			{"Created", strconv.Itoa(s.Created)},
			{"Updated", strconv.Itoa(s.Updated)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"  ambiguous", strconv.Itoa(s.Ambiguous)},
			{"Errors", strconv.Itoa(s.Errors)},
			{"Source follow-ups", strconv.Itoa(s.FollowUps)},
			{"  failed", strconv.Itoa(s.FollowUpErrors)},
			{"Already processed", strconv.Itoa(s.AlreadyProcessed)},
			{"API calls", strconv.Itoa(s.APICalls)},
			{"Pages fetched", strconv.Itoa(s.PagesFetched)},
			{"Rate-limit waits", strconv.Itoa(s.RateLimitWaits)},
			{"Limit reached", strconv.FormatBool(s.LimitReached)},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
		}
		return Data{Headers: []string{"Metric", "Value"}, Rows: rows, Align: []Align{AlignLeft, AlignRight}}
	}
}

// ReportTable lays out a validation report. The narrow table lists only
// entries that failed; the wide one lists every sampled entry.
func ReportTable(r validator.Report) func(bool) Data {
	return func(wide bool) Data {
		d := Data{
			Headers: []string{"Source", "Target", "Action", "Status", "Field", "Expected", "Actual"},
			Align:   []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignLeft},
		}
		for _, it := range r.Items {
			if it.Status == validator.StatusConfirmed && !wide {
				continue
			}
			if len(it.Mismatches) == 0 {
				d.Rows = append(d.Rows, []string{it.SourceID, it.TargetID, string(it.Action), string(it.Status), "", "", ""})
				continue
			}
			for _, m := range it.Mismatches {
				d.Rows = append(d.Rows, []string{it.SourceID, it.TargetID, string(it.Action), string(it.Status), m.Field, m.Expected, m.Actual})
			}
		}
		d.Rows = append(d.Rows, []string{
			fmt.Sprintf("sampled %d of %d", r.Sampled, r.Eligible), "", "", "",
			fmt.Sprintf("confirmed %d", r.Confirmed),
			fmt.Sprintf("mismatched %d", r.Mismatched),
			fmt.Sprintf("missing %d", r.Missing),
		})
		return d
	}
}

// ColumnsTable lays out the columns of a board.
func ColumnsTable(cols []board.Column) func(bool) Data {
	return func(wide bool) Data {
		d := Data{Headers: []string{"ID", "Title", "Type"}}
		if wide {
			d.Headers = append(d.Headers, "Settings")
		}
		for _, c := range cols {
			row := []string{string(c.ID), c.Title, c.Type}
			if wide {
				row = append(row, c.Settings)
			}
			d.Rows = append(d.Rows, row)
		}
		return d
	}
}

// OptionsTable lays out the option set of a column.
func OptionsTable(opts []records.Option) func(bool) Data {
	return func(bool) Data {
		d := Data{Headers: []string{"ID", "Label"}, Align: []Align{AlignRight, AlignLeft}}
		for _, o := range opts {
			d.Rows = append(d.Rows, []string{o.ID, o.Label})
		}
		return d
	}
}

// IndexTable lays out key coverage of an index. The wide table lists the
// colliding keys.
func IndexTable(s index.Stats) func(bool) Data {
	return func(wide bool) Data {
		dims := make([]string, 0, len(s.Keys))
		for dim := range s.Keys {
			dims = append(dims, string(dim))
		}
		sort.Strings(dims)

		d := Data{Headers: []string{"Dimension", "Keys", "Collisions"}, Align: []Align{AlignLeft, AlignRight, AlignRight}}
		if wide {
			d.Headers = append(d.Headers, "Colliding keys")
			d.Align = append(d.Align, AlignLeft)
		}
		for _, name := range dims {
			dim := index.Dimension(name)
			row := []string{name, strconv.Itoa(s.Keys[dim]), strconv.Itoa(len(s.Collisions[dim]))}
			if wide {
				row = append(row, strings.Join(s.Collisions[dim], ", "))
			}
			d.Rows = append(d.Rows, row)
		}
		total := []string{"targets", strconv.Itoa(s.Targets), ""}
		if wide {
			total = append(total, "")
		}
		d.Rows = append(d.Rows, total)
		return d
	}
}
