package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spyglass-dev/spyglass/internal/grid"
)

// quotedPhrasePattern pulls double-quoted phrases out of the raw query
// so they survive normalization as exact FTS phrases.
var quotedPhrasePattern = regexp.MustCompile(`"([^"]*)"`)

// NormalizeFTSQuery rewrites the user's free-text query into an FTS5
// MATCH expression: quoted phrases stay whole, bare words become
// individual terms, and everything is OR-joined so a row matches when
// any term does. Each term is re-quoted to keep FTS operators inert;
// stray quotes inside a keyword are stripped, since FTS5 rejects them.
func NormalizeFTSQuery(raw string) string {
	var terms []string

	rest := raw
	for _, m := range quotedPhrasePattern.FindAllStringSubmatch(raw, -1) {
		if phrase := strings.TrimSpace(m[1]); phrase != "" {
			terms = append(terms, `"`+phrase+`"`)
		}
		rest = strings.Replace(rest, m[0], " ", 1)
	}
	for _, word := range strings.Fields(rest) {
		word = strings.ReplaceAll(word, `"`, "")
		if word == "" {
			continue
		}
		terms = append(terms, `"`+word+`"`)
	}

	return strings.Join(terms, " OR ")
}

// Searcher executes row fetches against one snapshot database. Columns
// holds the visible column list per table, in display order, exactly as
// discovery registered them; sort positions index into that list.
type Searcher struct {
	Repo    *SearchRepo
	Columns map[string][]string
}

// Fetch implements the row-fetch protocol: total count, filtered count,
// and one page of rows for the table, restricted to its visible
// columns. An empty query means no filter and filtered equals total.
func (s *Searcher) Fetch(ctx context.Context, p grid.FetchParams) (grid.Response, error) {
	cols, ok := s.Columns[p.Table]
	if !ok {
		return grid.Response{}, fmt.Errorf("search failed - Table %s does not exist.", p.Table)
	}

	db := s.Repo.db
	table := quoteIdent(p.Table)

	var total int
	if err := db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&total); err != nil {
		return grid.Response{}, fmt.Errorf("search failed - could not count rows in %s: %v", p.Table, err)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	selectList := strings.Join(quoted, ", ")

	// Sort position is 1-based into the visible columns; out-of-range
	// values fall back to the first column.
	order := p.Order
	if order < 1 || order > len(cols) {
		order = 1
	}
	direction := grid.DirectionAsc
	if strings.EqualFold(p.Direction, grid.DirectionDesc) {
		direction = grid.DirectionDesc
	}
	orderBy := fmt.Sprintf("ORDER BY %s %s", quoted[order-1], direction)

	var (
		where    string
		args     []any
		filtered = total
	)
	if match := NormalizeFTSQuery(p.Query); match != "" {
		// Column filter so hidden columns never produce hits.
		match = fmt.Sprintf("{%s}: (%s)", strings.Join(cols, " "), match)
		ftsTable := quoteIdent(p.Table + "_fts")
		where = fmt.Sprintf("WHERE rowid IN (SELECT rowid FROM %s WHERE %s MATCH ?)", ftsTable, ftsTable)
		args = []any{match}

		if err := db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, table, where), args...).Scan(&filtered); err != nil {
			return grid.Response{}, fmt.Errorf("search failed - bad search query %q: %v", p.Query, err)
		}
	}

	length := p.Length
	if length <= 0 {
		length = 10
	}
	start := p.Start
	if start < 0 {
		start = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s %s LIMIT ? OFFSET ?`,
		selectList, table, where, orderBy)
	rows, err := db.QueryContext(ctx, query, append(args, length, start)...)
	if err != nil {
		return grid.Response{}, fmt.Errorf("search failed - could not read rows from %s: %v", p.Table, err)
	}
	defer rows.Close()

	data := make([]map[string]any, 0, length)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return grid.Response{}, fmt.Errorf("search failed - could not scan row from %s: %v", p.Table, err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
			} else {
				row[c] = values[i]
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return grid.Response{}, fmt.Errorf("search failed - could not read rows from %s: %v", p.Table, err)
	}

	return grid.Response{
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            data,
	}, nil
}
