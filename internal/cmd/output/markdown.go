package output

import (
	"fmt"
	"io"
	"os"
	"time"

	md "github.com/nao1215/markdown"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/validator"
)

// ReportMarkdown writes a validation report as a Markdown document.
func ReportMarkdown(w io.Writer, r validator.Report) error {
	doc := md.NewMarkdown(w).
		H1(fmt.Sprintf("Validation of board %s", r.Board)).
		BulletList(
			fmt.Sprintf("Sampled: %d of %d logged writes", r.Sampled, r.Eligible),
			fmt.Sprintf("Confirmed: %d (%.1f%%)", r.Confirmed, r.ConfirmationRate()),
			fmt.Sprintf("Mismatched: %d", r.Mismatched),
			fmt.Sprintf("Missing: %d", r.Missing),
			fmt.Sprintf("Duration: %s", r.Duration.Round(time.Millisecond)),
		)

	var missing, mismatched [][]string
	for _, it := range r.Items {
		switch it.Status {
		case validator.StatusMissing:
			missing = append(missing, []string{it.SourceID, it.SourceName, it.TargetID, string(it.Action)})
		case validator.StatusMismatched:
			for _, m := range it.Mismatches {
				mismatched = append(mismatched, []string{it.SourceID, it.TargetID, m.Field, md.Code(m.Expected), md.Code(m.Actual)})
			}
		}
	}
	if len(mismatched) > 0 {
		doc.H2("Mismatched fields").
			Table(md.TableSet{Header: []string{"Source", "Target", "Field", "Expected", "Actual"}, Rows: mismatched})
	}
	if len(missing) > 0 {
		doc.H2("Missing targets").
			Table(md.TableSet{Header: []string{"Source", "Name", "Target", "Action"}, Rows: missing})
	}
	if len(missing) == 0 && len(mismatched) == 0 {
		doc.PlainText("Every sampled item matches the run log.")
	}
	return doc.Build()
}

// WriteReportMarkdown writes the Markdown report to path.
func WriteReportMarkdown(path string, r validator.Report) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	if err := ReportMarkdown(f, r); err != nil {
		_ = f.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	return nil
}
