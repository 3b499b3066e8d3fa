// Package config holds the bridge settings document.
//
// Settings are a flat key-value document persisted as YAML. YAML is a
// superset of JSON, so settings files written by older JSON-based tools load
// unchanged. Keys the bridge does not recognise are preserved across a
// load/save cycle.
//
// Example document:
//
//	waypoint_file: /home/me/.minecraft/xaero/waypoints.txt
//	auto_name: true
//	name_prefix: Auto
//	name_counter: 1
//	random_color: true
//	color: 0
//	visibility_type: 0
//	disabled: false
//	wp_type: 0
//	y_default: 64
//	append_timestamp_to_name: false
//	recent_limit: 12
//	autowrite: true
//
// At runtime the document is owned by a single [Live] value, which is the
// only place the naming counter is advanced.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultPrefix is used when auto naming has no prefix configured.
	DefaultPrefix = "Auto"

	// PaletteSize is the number of colour indices the record format accepts.
	PaletteSize = 16

	defaultWaypointFileName = "xaero_waypoints.txt"
	defaultSettingsFileName = ".xaero_bridge_settings.yaml"
)

// Settings is the bridge configuration.
type Settings struct {
	// WaypointFile is the destination record file. Records are appended.
	WaypointFile string `yaml:"waypoint_file" json:"waypoint_file"`

	// AutoName names records "{prefix}{counter}" and advances the counter.
	AutoName bool `yaml:"auto_name" json:"auto_name"`

	// NamePrefix is the auto-name prefix, and the fallback name when
	// auto naming is off and no label is supplied.
	NamePrefix string `yaml:"name_prefix" json:"name_prefix"`

	// NameCounter is the next auto-name number. It never decreases.
	NameCounter int `yaml:"name_counter" json:"name_counter"`

	// RandomColor draws a palette index per record instead of using Color.
	RandomColor bool `yaml:"random_color" json:"random_color"`

	// Color is the explicit palette index, 0-15.
	Color int `yaml:"color" json:"color"`

	// VisibilityType is written verbatim into the record.
	VisibilityType int `yaml:"visibility_type" json:"visibility_type"`

	// Disabled marks written records as disabled.
	Disabled bool `yaml:"disabled" json:"disabled"`

	// WaypointType is the record subtype (0 normal, 1 death, 2 old death).
	WaypointType int `yaml:"wp_type" json:"wp_type"`

	// DefaultY is the elevation used when the source text has none.
	DefaultY int `yaml:"y_default" json:"y_default"`

	// AppendTimestamp adds "-YYYYMMDD-HHMMSS" to auto-generated names.
	AppendTimestamp bool `yaml:"append_timestamp_to_name" json:"append_timestamp_to_name"`

	// RecentLimit is the capacity of each in-memory history list.
	RecentLimit int `yaml:"recent_limit" json:"recent_limit"`

	// AutoWrite writes a record for every parsed clipboard value.
	AutoWrite bool `yaml:"autowrite" json:"autowrite"`
}

// Defaults returns the built-in settings used when no document exists.
func Defaults() Settings {
	return Settings{
		WaypointFile: filepath.Join(homeDir(), defaultWaypointFileName),
		AutoName:     true,
		NamePrefix:   DefaultPrefix,
		NameCounter:  1,
		RandomColor:  true,
		DefaultY:     64,
		RecentLimit:  12,
		AutoWrite:    true,
	}
}

// DefaultPath returns the default settings document location.
func DefaultPath() string {
	return filepath.Join(homeDir(), defaultSettingsFileName)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// Validate reports every invalid field at once.
func (s Settings) Validate() error {
	var errs []error

	if s.WaypointFile == "" {
		errs = append(errs, errors.New("waypoint_file is required"))
	}
	if s.NameCounter < 1 {
		errs = append(errs, fmt.Errorf("name_counter must be at least 1, got %d", s.NameCounter))
	}
	if s.Color < 0 || s.Color >= PaletteSize {
		errs = append(errs, fmt.Errorf("color must be between 0 and %d, got %d", PaletteSize-1, s.Color))
	}
	if s.VisibilityType < 0 {
		errs = append(errs, fmt.Errorf("visibility_type cannot be negative, got %d", s.VisibilityType))
	}
	if s.WaypointType < 0 {
		errs = append(errs, fmt.Errorf("wp_type cannot be negative, got %d", s.WaypointType))
	}
	if s.RecentLimit < 1 {
		errs = append(errs, fmt.Errorf("recent_limit must be at least 1, got %d", s.RecentLimit))
	}

	return errors.Join(errs...)
}
