package mapping

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"

	"github.com/tobiasrohr/FInal-merger/pkg/errors"
)

// LoadFile reads a mapping spec from a .yaml, .yml, .toml or .json file,
// fills defaults and validates it against the registry. Every failure is a
// setup error.
func LoadFile(path string, transforms *Registry) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("mapping", "cannot read mapping file", errors.WrapIO("read", path, err))
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	spec, err := Parse(data, format)
	if err != nil {
		var parseErr *errors.ParseError
		if errors.As(err, &parseErr) {
			parseErr.File = path
		}
		return nil, errors.NewConfigError("mapping", "cannot parse mapping file", err)
	}
	if err := spec.Validate(transforms); err != nil {
		return nil, err
	}
	return spec, nil
}

// Parse decodes a spec in the given format and fills defaults.
func Parse(data []byte, format string) (*Spec, error) {
	var spec Spec
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, errors.WrapParse("yaml", "", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &spec); err != nil {
			return nil, errors.WrapParse("toml", "", err)
		}
	case "json":
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, errors.WrapParse("json", "", err)
		}
	default:
		return nil, errors.NewValidationError("format", format, "mapping files must be yaml, toml or json")
	}
	if err := spec.Normalize(); err != nil {
		return nil, err
	}
	return &spec, nil
}
