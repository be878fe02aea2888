package store

import (
	"context"
	"fmt"

	"inventory_manager/domain"
)

// NewStore constructs a domain.CatalogStore by kind: "memory", "file",
// "mysql" or "postgres". location is the file path for the file store and
// the DSN for the SQL stores; it is ignored for memory.
func NewStore(ctx context.Context, kind, location string) (domain.CatalogStore, error) {
	switch kind {
	case "memory", "mem":
		return NewInMemoryStore(), nil
	case "file":
		if location == "" {
			return nil, fmt.Errorf("file path required for file store")
		}
		return NewFileStore(location)
	case "mysql", "postgres":
		if location == "" {
			return nil, fmt.Errorf("dsn required for %s store", kind)
		}
		return OpenSQLStore(ctx, kind, location)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}
