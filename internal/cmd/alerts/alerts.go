// Package alerts derives status notices from command results and writes
// them to the terminal.
package alerts

import (
	"fmt"
	"io"
	"strings"
)

// Level is the severity of an alert.
type Level int

// Alert levels.
const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelSuccess
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Icon returns the symbol printed in front of an alert.
func (l Level) Icon() string {
	switch l {
	case LevelError:
		return "✗"
	case LevelWarning:
		return "!"
	case LevelSuccess:
		return "✓"
	default:
		return "i"
	}
}

// Alert is one notice.
type Alert struct {
	Level   Level
	Message string
	Details []string
}

// New creates an alert.
func New(level Level, format string, args ...any) *Alert {
	return &Alert{Level: level, Message: fmt.Sprintf(format, args...)}
}

// WithDetails adds indented detail lines.
func (a *Alert) WithDetails(details ...string) *Alert {
	a.Details = append(a.Details, details...)
	return a
}

// String renders the alert with its icon and details.
func (a *Alert) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", a.Level.Icon(), a.Message)
	for _, d := range a.Details {
		fmt.Fprintf(&b, "\n    %s", d)
	}
	return b.String()
}

// Write prints alerts at least as severe as min, one per line. LevelSuccess
// prints everything.
func Write(w io.Writer, min Level, list ...*Alert) error {
	for _, a := range list {
		if a == nil || a.Level > min {
			continue
		}
		if _, err := fmt.Fprintln(w, a.String()); err != nil {
			return err
		}
	}
	return nil
}
