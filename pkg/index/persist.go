package index

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agentstation/utc"

	"github.com/tobiasrohr/FInal-merger/pkg/constants"
	"github.com/tobiasrohr/FInal-merger/pkg/errors"
	"github.com/tobiasrohr/FInal-merger/pkg/records"
)

// artifactVersion is bumped whenever the on-disk layout changes.
const artifactVersion = 1

// artifact is the persisted form of an index. Per-dimension maps are
// derived data and rebuilt on load.
type artifact struct {
	Version int              `json:"version"`
	BoardID string           `json:"board_id,omitempty"`
	BuiltAt utc.Time         `json:"built_at"`
	Config  Config           `json:"config"`
	Targets []records.Record `json:"targets"`
	Stats   Stats            `json:"stats"`
}

// Save writes the index as a JSON artifact.
func (idx *Index) Save(w io.Writer, boardID string) error {
	targets := make([]records.Record, 0, len(idx.order))
	for _, id := range idx.order {
		targets = append(targets, idx.targets[id])
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(artifact{
		Version: artifactVersion,
		BoardID: boardID,
		BuiltAt: utc.Now(),
		Config:  idx.config,
		Targets: targets,
		Stats:   idx.Stats(),
	})
}

// SaveFile writes the artifact to path atomically.
func (idx *Index) SaveFile(path, boardID string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return errors.WrapIO("open", tmp, err)
	}
	if err := idx.Save(f, boardID); err != nil {
		_ = f.Close()
		return errors.WrapIO("write", tmp, err)
	}
	if err := f.Close(); err != nil {
		return errors.WrapIO("close", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// Load reads an artifact written by Save and rebuilds the index. The board
// ID recorded at build time is returned alongside.
func Load(r io.Reader) (*Index, string, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, "", errors.WrapParse("json", "index", err)
	}
	if a.Version != artifactVersion {
		return nil, "", errors.NewValidationError("version", a.Version,
			fmt.Sprintf("unsupported index artifact version (want %d)", artifactVersion))
	}
	return Build(a.Targets, a.Config), a.BoardID, nil
}

// LoadFile reads an artifact from path.
func LoadFile(path string) (*Index, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", errors.NewConfigError("index", "cannot open index artifact", errors.WrapIO("open", path, err))
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
