package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spyglass-dev/spyglass/internal/database"
	"github.com/spyglass-dev/spyglass/internal/grid"
)

// openSeeded migrates and seeds a throwaway snapshot and returns a
// handle to it.
func openSeeded(t *testing.T) *sql.DB {
	t.Helper()

	migrations, err := filepath.Abs(filepath.Join("..", "migrations"))
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, database.RunMigrations(dbPath, migrations))

	db, err := database.OpenWritable(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2024, 3, 7, 14, 30, 0, 0, time.UTC)
	require.NoError(t, database.Seed(context.Background(), db, now))
	return db
}

func TestTablesExcludesShadowTablesAndLedger(t *testing.T) {
	repo := NewSearchRepo(openSeeded(t))

	tables, err := repo.Tables(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"devices", "services", "imports"}, tables)
}

func TestTableColumnsDeclaredOrder(t *testing.T) {
	repo := NewSearchRepo(openSeeded(t))

	cols, err := repo.TableColumns(context.Background(), "devices")
	require.NoError(t, err)
	require.Equal(t, []string{"mac", "hostname", "ip", "is_online", "last_seen", "created_at"}, cols)
}

func TestTableColumnsUnknownTable(t *testing.T) {
	repo := NewSearchRepo(openSeeded(t))

	_, err := repo.TableColumns(context.Background(), "nosuch")
	require.Error(t, err)
}

func TestSuggestTable(t *testing.T) {
	got := SuggestTable([]string{"devices", "services", "imports"}, "devcies")
	require.Equal(t, "devices", got)
}

func TestConfigSourceUnknownTableSuggests(t *testing.T) {
	src := ConfigSource{
		Repo:      NewSearchRepo(openSeeded(t)),
		Overrides: map[string]string{"device": ""},
	}

	_, err := src.Tables(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), `"devices"`)
}

func TestConfigSourceColumnSubset(t *testing.T) {
	src := ConfigSource{
		Repo:      NewSearchRepo(openSeeded(t)),
		Overrides: map[string]string{"devices": "mac, ip"},
	}

	cols, err := src.Columns(context.Background(), "devices")
	require.NoError(t, err)
	require.Equal(t, []string{"mac", "ip"}, cols)
}

func TestConfigSourceUnknownColumn(t *testing.T) {
	src := ConfigSource{
		Repo:      NewSearchRepo(openSeeded(t)),
		Overrides: map[string]string{"devices": "mac, nosuch"},
	}

	_, err := src.Columns(context.Background(), "devices")
	require.Error(t, err)
}

func TestNormalizeFTSQuery(t *testing.T) {
	require.Equal(t, `"open ssh" OR "ssh" OR "22"`, NormalizeFTSQuery(`ssh "open ssh" 22`))
	require.Equal(t, `"mysql"`, NormalizeFTSQuery("mysql"))
	require.Equal(t, "", NormalizeFTSQuery("   "))
}

func TestNormalizeFTSQueryStripsStrayQuotes(t *testing.T) {
	// An unmatched quote inside a keyword must not leak into the MATCH
	// expression; FTS5 has no escape for it.
	require.Equal(t, `"linux7"`, NormalizeFTSQuery(`linux"7`))
	require.Equal(t, "", NormalizeFTSQuery(`"`))
	require.Equal(t, `"ssh"`, NormalizeFTSQuery(`ssh "`))
}

func newSearcher(t *testing.T) *Searcher {
	t.Helper()
	repo := NewSearchRepo(openSeeded(t))

	cols := map[string][]string{}
	for _, table := range []string{"devices", "services", "imports"} {
		c, err := repo.TableColumns(context.Background(), table)
		require.NoError(t, err)
		cols[table] = c
	}
	return &Searcher{Repo: repo, Columns: cols}
}

func TestFetchEmptyQueryUnfiltered(t *testing.T) {
	s := newSearcher(t)

	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Direction: grid.DirectionAsc, Order: 1, Length: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 50, res.RecordsTotal)
	require.Equal(t, 50, res.RecordsFiltered)
	require.Len(t, res.Data, 10)
}

func TestFetchFiltersWithFTS(t *testing.T) {
	s := newSearcher(t)

	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Query: `"linux-server-7"`,
		Direction: grid.DirectionAsc, Order: 1, Length: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 50, res.RecordsTotal)
	require.Equal(t, 1, res.RecordsFiltered)
	require.Len(t, res.Data, 1)
	require.Equal(t, "linux-server-7", res.Data[0]["hostname"])
}

func TestFetchSortDescending(t *testing.T) {
	s := newSearcher(t)

	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Order: 2, Direction: grid.DirectionDesc, Length: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	require.Equal(t, "linux-server-9", res.Data[0]["hostname"])
}

func TestFetchPaging(t *testing.T) {
	s := newSearcher(t)

	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Order: 1, Direction: grid.DirectionAsc,
		Length: 10, Start: 48,
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
}

func TestFetchUnknownTable(t *testing.T) {
	s := newSearcher(t)

	_, err := s.Fetch(context.Background(), grid.FetchParams{Table: "nosuch"})
	require.Error(t, err)
	require.Equal(t, "Error: Table nosuch does not exist.", grid.HumanizeError(err.Error()))
}

func TestFetchLoneQuoteQueryDoesNotError(t *testing.T) {
	s := newSearcher(t)

	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Query: `linux"7`,
		Direction: grid.DirectionAsc, Order: 1, Length: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 50, res.RecordsTotal)
}

func TestFetchMatchesOnlyVisibleColumns(t *testing.T) {
	repo := NewSearchRepo(openSeeded(t))
	s := &Searcher{Repo: repo, Columns: map[string][]string{"devices": {"mac", "ip"}}}

	// hostname is indexed but hidden, so a hostname-only value must not hit.
	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Query: `"linux-server-7"`,
		Direction: grid.DirectionAsc, Order: 1, Length: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 0, res.RecordsFiltered)
	require.Empty(t, res.Data)

	// A visible-column value still matches.
	res, err = s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Query: `"10.0.0.7"`,
		Direction: grid.DirectionAsc, Order: 1, Length: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.RecordsFiltered)
}

func TestFetchRestrictsToVisibleColumns(t *testing.T) {
	repo := NewSearchRepo(openSeeded(t))
	s := &Searcher{Repo: repo, Columns: map[string][]string{"devices": {"mac", "ip"}}}

	res, err := s.Fetch(context.Background(), grid.FetchParams{
		Table: "devices", Order: 1, Direction: grid.DirectionAsc, Length: 1,
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	require.Len(t, res.Data[0], 2)
	require.Contains(t, res.Data[0], "mac")
	require.NotContains(t, res.Data[0], "hostname")
}
