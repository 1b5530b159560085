package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/configbuilder/rules"
)

// MaxCatalogFileSize caps catalog files read from disk (4MB)
const MaxCatalogFileSize = 4 * 1024 * 1024

// Format is a catalog file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Snapshot is the inbound catalog contract: everything a catalog-loading
// collaborator hands to the engine for one session's lifetime.
type Snapshot struct {
	ProductClasses []ProductClass   `json:"productClasses" yaml:"productClasses"`
	Categories     []OptionCategory `json:"categories" yaml:"categories"`
	Options        []Option         `json:"options" yaml:"options"`
	Rules          []rules.Rule     `json:"rules" yaml:"rules"`
}

// Build validates the snapshot and returns the shared store and rule resolver
func (s *Snapshot) Build() (*Store, *rules.Resolver, error) {
	store, err := NewStore(s.ProductClasses, s.Categories, s.Options)
	if err != nil {
		return nil, nil, err
	}
	if err := rules.Validate(s.Rules, store); err != nil {
		return nil, nil, err
	}
	return store, rules.NewResolver(s.Rules), nil
}

// Decode reads a snapshot in the given format. It does not validate.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxCatalogFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(data) > MaxCatalogFileSize {
		return nil, fmt.Errorf("catalog exceeds maximum size of %d bytes", MaxCatalogFileSize)
	}

	var snap Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("failed to decode JSON catalog: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&snap); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode YAML catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	return &snap, nil
}

// FormatForPath picks the format from a file extension, defaulting to YAML
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// LoadFile reads and decodes a catalog file; callers validate with Build
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file %s: %w", path, err)
	}
	defer f.Close()

	snap, err := Decode(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return snap, nil
}
