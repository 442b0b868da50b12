package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ftsTablePattern matches the FTS5 shadow tables the collector creates
// alongside every data table; they are infrastructure, not results.
var ftsTablePattern = regexp.MustCompile(`^.*(_fts|_fts_config|_fts_data|_fts_docsize|_fts_idx)$`)

// SearchRepo answers table introspection and search queries against one
// snapshot database.
type SearchRepo struct {
	db *sql.DB
}

func NewSearchRepo(db *sql.DB) *SearchRepo { return &SearchRepo{db: db} }

// Tables lists the data tables in the snapshot, in schema order. FTS
// shadow tables and the seeder's migration ledger are filtered out.
func (r *SearchRepo) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if ftsTablePattern.MatchString(name) || name == "schema_migrations" {
			continue
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// TableColumns returns a table's column names in declared order.
func (r *SearchRepo) TableColumns(ctx context.Context, table string) ([]string, error) {
	exists, err := r.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("table %q not found", table)
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info for %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// TableExists reports whether a table name exists in the snapshot.
func (r *SearchRepo) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", table, err)
	}
	return count > 0, nil
}

// ColumnExists reports whether a column exists in a table.
func (r *SearchRepo) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	cols, err := r.TableColumns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, c := range cols {
		if c == column {
			return true, nil
		}
	}
	return false, nil
}

// SuggestTable returns the candidate closest to name by edit distance,
// used to improve the error when configuration references a table the
// snapshot does not have. Empty when there are no candidates.
func SuggestTable(candidates []string, name string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if bestDist == -1 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// ConfigSource exposes the snapshot's tables filtered through per-table
// visibility overrides: a mapping of table name to a comma-separated
// column list, where an empty value means all columns. With no
// overrides, every data table is visible with all columns.
type ConfigSource struct {
	Repo      *SearchRepo
	Overrides map[string]string
}

// Tables implements discovery: override keys when configured (sorted
// for determinism), otherwise everything the snapshot declares.
func (s ConfigSource) Tables(ctx context.Context) ([]string, error) {
	all, err := s.Repo.Tables(ctx)
	if err != nil {
		return nil, err
	}
	if len(s.Overrides) == 0 {
		return all, nil
	}

	exists := make(map[string]struct{}, len(all))
	for _, t := range all {
		exists[t] = struct{}{}
	}

	out := make([]string, 0, len(s.Overrides))
	for name := range s.Overrides {
		if _, ok := exists[name]; !ok {
			if hint := SuggestTable(all, name); hint != "" {
				return nil, fmt.Errorf("configured table %q not found (did you mean %q?)", name, hint)
			}
			return nil, fmt.Errorf("configured table %q not found", name)
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Columns implements discovery for one table: the configured column
// list when present and non-empty, otherwise the table's full column
// set. Configured columns must exist.
func (s ConfigSource) Columns(ctx context.Context, table string) ([]string, error) {
	all, err := s.Repo.TableColumns(ctx, table)
	if err != nil {
		return nil, err
	}

	csv := strings.TrimSpace(s.Overrides[table])
	if csv == "" {
		return all, nil
	}

	exists := make(map[string]struct{}, len(all))
	for _, c := range all {
		exists[c] = struct{}{}
	}

	var out []string
	for _, part := range strings.Split(csv, ",") {
		col := strings.TrimSpace(part)
		if col == "" {
			continue
		}
		if _, ok := exists[col]; !ok {
			return nil, fmt.Errorf("configured column %q not found in table %s", col, table)
		}
		out = append(out, col)
	}
	return out, nil
}

// quoteIdent wraps an identifier in double quotes for interpolation
// into SQL. Identifiers are validated against sqlite_master before use;
// quoting guards the embedded-quote case.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
