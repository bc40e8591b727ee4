// Package runlog implements the append-only run log that doubles as the
// resume ledger. The log is a JSON Lines file; the presence of an entry for
// a source item is the only signal that the item was processed.
package runlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
)

// Log is an open run log. It is safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	entries   []Entry
	processed map[string]struct{}
	dryRun    bool
}

// Open opens or creates the log at path and loads the entries it already
// holds. A partial final line left by a crash is cut off.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return nil, errors.WrapIO("create", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, constants.FilePermissions)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	entries, valid, unterminated, err := decode(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Truncate(valid); err != nil {
		f.Close()
		return nil, errors.WrapIO("truncate", path, err)
	}
	if _, err := f.Seek(valid, io.SeekStart); err != nil {
		f.Close()
		return nil, errors.WrapIO("seek", path, err)
	}
	if unterminated {
		if _, err := f.Write([]byte{'\n'}); err != nil {
			f.Close()
			return nil, errors.WrapIO("write", path, err)
		}
	}

	l := &Log{
		path:      path,
		file:      f,
		processed: make(map[string]struct{}, len(entries)),
	}
	for _, e := range entries {
		l.track(e)
	}
	l.entries = entries
	return l, nil
}

func (l *Log) track(e Entry) {
	l.processed[e.SourceID] = struct{}{}
	if e.DryRun {
		l.dryRun = true
	}
}

// Path returns the file the log writes to.
func (l *Log) Path() string { return l.path }

// Append writes entries and syncs the file once.
func (l *Log) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return errors.WrapParse("jsonl", l.path, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.NewIOError("append", l.path, os.ErrClosed)
	}
	if _, err := l.file.Write(buf.Bytes()); err != nil {
		return errors.WrapIO("write", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return errors.WrapIO("sync", l.path, err)
	}
	for _, e := range entries {
		l.track(e)
	}
	l.entries = append(l.entries, entries...)
	return nil
}

// Has reports whether an entry for sourceID exists.
func (l *Log) Has(sourceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.processed[sourceID]
	return ok
}

// Len returns the number of distinct processed source items.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.processed)
}

// HasDryRun reports whether any entry was written by a dry run.
func (l *Log) HasDryRun() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dryRun
}

// Entries returns a copy of all entries in file order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return errors.WrapIO("close", l.path, err)
	}
	return nil
}

// ReadFile reads all entries of the log at path.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConfigError("runlog", "run log "+path+" does not exist", err)
		}
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()
	entries, _, _, err := decode(f, path)
	return entries, err
}

// decode reads entries and returns the byte offset just past the last
// valid line, and whether that line lacks its newline. Only the final line
// may be malformed, and only when it lacks a newline.
func decode(r io.Reader, path string) ([]Entry, int64, bool, error) {
	br := bufio.NewReader(r)
	var (
		entries []Entry
		offset  int64
		line    int
	)
	for {
		data, err := br.ReadBytes('\n')
		if len(data) > 0 {
			line++
			complete := data[len(data)-1] == '\n'
			trimmed := bytes.TrimSpace(data)
			if len(trimmed) > 0 {
				var e Entry
				if jerr := json.Unmarshal(trimmed, &e); jerr != nil {
					if !complete {
						return entries, offset, false, nil
					}
					return nil, 0, false, &errors.ParseError{Format: "jsonl", File: path, Line: line, Message: "malformed run log entry", Err: jerr}
				}
				if !complete {
					return append(entries, e), offset + int64(len(data)), true, nil
				}
				entries = append(entries, e)
			}
			offset += int64(len(data))
		}
		if err == io.EOF {
			return entries, offset, false, nil
		}
		if err != nil {
			return nil, 0, false, errors.WrapIO("read", path, err)
		}
	}
}
