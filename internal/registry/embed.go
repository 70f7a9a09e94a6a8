package registry

import (
	"context"
	"embed"
)

//go:embed catalog
var embeddedCatalog embed.FS

const builtinCatalogPath = "catalog/builtin.json"

// EmbeddedSource is the catalog compiled into the binary.
type EmbeddedSource struct{}

// Entries decodes the embedded catalog.
func (EmbeddedSource) Entries(ctx context.Context) ([]*Entry, error) {
	return EmbeddedEntries()
}

func (EmbeddedSource) String() string { return BuiltinSource }

// EmbeddedEntries returns the entries of the built-in catalog.
func EmbeddedEntries() ([]*Entry, error) {
	data, err := embeddedCatalog.ReadFile(builtinCatalogPath)
	if err != nil {
		return nil, err
	}
	return Decode(data, FormatJSON)
}
