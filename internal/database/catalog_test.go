package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestCatalogListSortsByModTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC)

	newer := writeSnapshot(t, dir, "watchtower_1700000100.db", base.Add(time.Hour))
	older := writeSnapshot(t, dir, "watchtower_1700000000.db", base)
	writeSnapshot(t, dir, ".hidden.db", base.Add(2*time.Hour))

	c := Catalog{Dir: dir, Ext: "db"}
	paths, err := c.List()
	require.NoError(t, err)
	require.Equal(t, []string{older, newer}, paths)

	recent, err := c.MostRecent()
	require.NoError(t, err)
	require.Equal(t, newer, recent)
}

func TestCatalogNames(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "watchtower_1700000000.db", time.Now())

	c := Catalog{Dir: dir, Ext: "db"}
	names, err := c.Names()
	require.NoError(t, err)
	require.Equal(t, []string{"watchtower_1700000000"}, names)
}

func TestCatalogPath(t *testing.T) {
	dir := t.TempDir()
	path := writeSnapshot(t, dir, "watchtower_1700000000.db", time.Now())

	c := Catalog{Dir: dir, Ext: "db"}

	got, err := c.Path("watchtower_1700000000")
	require.NoError(t, err)
	require.Equal(t, path, got)

	// Identifiers arriving with an extension or directory still resolve.
	got, err = c.Path("/tmp/elsewhere/watchtower_1700000000.db")
	require.NoError(t, err)
	require.Equal(t, path, got)

	_, err = c.Path("missing_1700000000")
	require.Error(t, err)
}

func TestCatalogMostRecentEmpty(t *testing.T) {
	c := Catalog{Dir: t.TempDir(), Ext: "db"}
	_, err := c.MostRecent()
	require.Error(t, err)
}

func TestSnapshotFilename(t *testing.T) {
	now := time.Unix(1700000000, 0)
	require.Equal(t, "watchtower_1700000000.db", SnapshotFilename("watchtower", now, "db"))
}
