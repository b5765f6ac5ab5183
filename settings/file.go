// Package settings supplies the per-rule options a pass runs with. Settings
// come from YAML or TOML files, from the rule_settings SQLite table, or from
// both, and are published through a Live holder that file and database
// watchers refresh while the service runs.
package settings

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch/rule"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for settings files that are neither YAML nor
// TOML.
var ErrUnknownFormat = errors.New("settings: unknown file format")

// ErrUnknownRule is returned by Validate for entries naming no registered
// rule.
var ErrUnknownRule = errors.New("settings: unknown rule")

// Format is a settings file encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// File is the on-disk layout:
//
//	rules:
//	  tag-name:
//	    enabled: true
//	  page-title:
//	    enabled: true
//	    params:
//	      min_length: "3"
type File struct {
	Rules map[string]rule.Options `yaml:"rules" toml:"rules"`
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%s", path)
}

// Decode parses settings in the given format.
func Decode(data []byte, f Format) (rule.Settings, error) {
	var file File
	switch f {
	case YAML:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, errors.Wrap(err, "settings: decode yaml")
		}
	case TOML:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&file); err != nil {
			return nil, errors.Wrap(err, "settings: decode toml")
		}
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", string(f))
	}
	out := make(rule.Settings, len(file.Rules))
	for name, o := range file.Rules {
		out[strings.TrimSpace(name)] = o
	}
	return out, nil
}

// Encode writes settings in the given format. Rule names are sorted.
func Encode(s rule.Settings, f Format) ([]byte, error) {
	file := File{Rules: map[string]rule.Options(s)}
	switch f {
	case YAML:
		data, err := yaml.Marshal(file)
		if err != nil {
			return nil, errors.Wrap(err, "settings: encode yaml")
		}
		return data, nil
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(file); err != nil {
			return nil, errors.Wrap(err, "settings: encode toml")
		}
		return buf.Bytes(), nil
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%q", string(f))
}

// LoadFile reads a settings file, picking the format from its extension.
func LoadFile(path string) (rule.Settings, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "settings: read file")
	}
	return Decode(data, f)
}

// SaveFile writes s to path in the format of its extension.
func SaveFile(path string, s rule.Settings) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(s, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "settings: write file")
	}
	return nil
}

// Validate reports entries that name no rule of reg.
func Validate(s rule.Settings, reg *rule.Registry) error {
	var unknown []string
	for name := range s {
		if reg.Lookup(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return errors.WithHint(
		errors.Wrapf(ErrUnknownRule, "%s", strings.Join(unknown, ", ")),
		"run `a11ywatch rules` to list rule names",
	)
}

// Merge overlays the entries of over on base. Neither input is modified.
func Merge(base, over rule.Settings) rule.Settings {
	out := base.Clone()
	for name, o := range over {
		out[name] = o.Merge(rule.Options{})
	}
	return out
}
