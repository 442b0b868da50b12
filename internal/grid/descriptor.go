package grid

import (
	"context"
	"fmt"
	"strings"
)

// TableDescriptor is the static configuration for one searchable table:
// its unique name, the endpoint template used for row fetches, and its
// column names in display order. Column order is significant; the render
// plan and sort parameters address columns by position.
type TableDescriptor struct {
	Name     string
	Endpoint string
	Columns  []string
}

// WidgetID derives the identifier of a per-table UI affordance from the
// table name, replacing underscores with hyphens. Consumers that address
// the label, loader, or error banner of a table must reproduce this
// derivation exactly.
func (d TableDescriptor) WidgetID(kind string) string {
	return strings.ReplaceAll(d.Name, "_", "-") + "-" + kind
}

// Affordance kinds understood by the panes.
const (
	WidgetLabel  = "label"
	WidgetLoader = "loader"
	WidgetError  = "error"
)

// Source enumerates the tables declared for the current data source and
// their columns. Implemented by the search repository, filtered through
// configuration.
type Source interface {
	Tables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]string, error)
}

// Discover builds a descriptor for every table the source declares.
// Runs once per data source; descriptors are never re-derived afterward.
// A table with no columns cannot be rendered, so discovery fails fast on
// one rather than registering a broken pane.
func Discover(ctx context.Context, src Source, endpoint string) ([]TableDescriptor, error) {
	names, err := src.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]TableDescriptor, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("discover tables: duplicate table %q", name)
		}
		seen[name] = struct{}{}

		cols, err := src.Columns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("discover columns for %s: %w", name, err)
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("discover columns for %s: table has no columns", name)
		}
		out = append(out, TableDescriptor{Name: name, Endpoint: endpoint, Columns: cols})
	}
	return out, nil
}
