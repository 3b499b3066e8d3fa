package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Document is a settings file: the recognised [Settings] plus any other
// keys that were present when it was loaded.
type Document struct {
	Settings Settings

	extra map[string]any
}

// NewDocument wraps settings in a document with no extra keys.
func NewDocument(s Settings) *Document {
	return &Document{Settings: s}
}

// Extra returns a copy of the unrecognised keys carried by the document.
func (d *Document) Extra() map[string]any {
	if len(d.extra) == 0 {
		return nil
	}
	cp := make(map[string]any, len(d.extra))
	for k, v := range d.extra {
		cp[k] = v
	}
	return cp
}

// Load reads a settings document from path.
//
// A missing file is not an error: the built-in [Defaults] are returned.
// Keys present in the file override defaults; absent keys keep them.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(Defaults()), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a settings document and validates it.
func Parse(data []byte) (*Document, error) {
	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	known, err := knownKeys()
	if err != nil {
		return nil, err
	}
	extra := make(map[string]any)
	for k, v := range raw {
		if _, ok := known[k]; !ok {
			extra[k] = v
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &Document{Settings: s, extra: extra}, nil
}

// Marshal encodes the document. Recognised keys win over an extra key of
// the same name.
func (d *Document) Marshal() ([]byte, error) {
	known, err := toMap(d.Settings)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(known)+len(d.extra))
	for k, v := range d.extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return yaml.Marshal(out)
}

// Save rewrites the whole document at path, creating the parent directory
// if needed. The file is replaced atomically via rename.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// knownKeys lists the document keys that map onto [Settings] fields.
func knownKeys() (map[string]struct{}, error) {
	m, err := toMap(Defaults())
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(m))
	for k := range m {
		keys[k] = struct{}{}
	}
	return keys, nil
}

func toMap(s Settings) (map[string]any, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return m, nil
}
