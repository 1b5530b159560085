package store

import (
	"context"

	"github.com/liamcoop/configbuilder/catalog"
)

// FileCatalogSource reads the catalog from a YAML or JSON file on every Load
type FileCatalogSource struct {
	Path string
}

// NewFileCatalogSource creates a source for the given path
func NewFileCatalogSource(path string) *FileCatalogSource {
	return &FileCatalogSource{Path: path}
}

// Load reads and decodes the file
func (s *FileCatalogSource) Load(ctx context.Context) (*catalog.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return catalog.LoadFile(s.Path)
}
