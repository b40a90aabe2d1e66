package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ImaggaSettings declares the properties of a keyword adapter as a host would
// supply them. Every field is optional: a nil value means "not configured"
// and is resolved to its default when the adapter is created.
type ImaggaSettings struct {
	// URL is the Imagga API base URL. Default https://api.imagga.com/v2.
	URL *string `yaml:"url" env:"IMAGGA_URL, noinit"`

	// BasicAuthKey authenticates against Imagga. Although nullable here, the
	// adapter cannot be created without it.
	BasicAuthKey *string `yaml:"basicAuthKey" env:"IMAGGA_BASIC_AUTH_KEY, noinit"`

	// MinAccuracy is the minimum confidence percentage (0-100) for a tag to
	// be returned. Default 30.
	MinAccuracy *int `yaml:"minAccuracy" env:"IMAGGA_MIN_ACCURACY, noinit"`

	// Limit is the maximum number of tags returned, or nil for no limit.
	Limit *int `yaml:"limit" env:"IMAGGA_LIMIT, noinit"`
}

// ReadSettingsFile parses a YAML settings document. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func ReadSettingsFile(path string) (ImaggaSettings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ImaggaSettings{}, err
	}

	return ParseSettings(content)
}

func ParseSettings(content []byte) (ImaggaSettings, error) {
	var s ImaggaSettings

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	// an empty document configures nothing
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return ImaggaSettings{}, fmt.Errorf("could not parse settings: %w", err)
	}

	return s, nil
}

// Merge returns a copy of s where every field set in overrides replaces the
// corresponding value of s.
func (s ImaggaSettings) Merge(overrides ImaggaSettings) ImaggaSettings {
	if overrides.URL != nil {
		s.URL = overrides.URL
	}
	if overrides.BasicAuthKey != nil {
		s.BasicAuthKey = overrides.BasicAuthKey
	}
	if overrides.MinAccuracy != nil {
		s.MinAccuracy = overrides.MinAccuracy
	}
	if overrides.Limit != nil {
		s.Limit = overrides.Limit
	}
	return s
}

// Validate checks the ranges of the numeric settings. A missing credential
// is not reported here: that is the adapter factory's decision.
func (s ImaggaSettings) Validate() error {
	if s.MinAccuracy != nil && (*s.MinAccuracy < 0 || *s.MinAccuracy > 100) {
		return fmt.Errorf("minAccuracy must be between 0 and 100, got %d", *s.MinAccuracy)
	}

	// -1 is Imagga's own representation of "no limit"
	if s.Limit != nil && *s.Limit != -1 && *s.Limit <= 0 {
		return fmt.Errorf("limit must be a positive integer, got %d", *s.Limit)
	}

	return nil
}
