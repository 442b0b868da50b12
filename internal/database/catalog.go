package database

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog locates snapshot database files inside the configured
// directory. Snapshots follow the collector's naming convention
// <name>_<timestamp>.<ext>; the catalog treats the stripped filename as
// the data-source identifier.
type Catalog struct {
	Dir string
	Ext string
}

// List returns the paths of all visible snapshot files, sorted by OS
// modification time, oldest first. Dotfiles are skipped.
func (c Catalog) List() ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("read database dir: %w", err)
	}

	type candidate struct {
		path  string
		mtime int64
	}
	var found []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		found = append(found, candidate{path: filepath.Join(c.Dir, name), mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mtime < found[j].mtime })

	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, f.path)
	}
	return out, nil
}

// Names returns the data-source identifiers of all snapshots, in the
// same mtime order as List.
func (c Catalog) Names() ([]string, error) {
	paths, err := c.List()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, StripFilename(p))
	}
	return out, nil
}

// MostRecent returns the path of the most recently modified snapshot.
func (c Catalog) MostRecent() (string, error) {
	paths, err := c.List()
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no databases found in %s", c.Dir)
	}
	return paths[len(paths)-1], nil
}

// Path resolves a data-source identifier back to an absolute snapshot
// path. The identifier may arrive with a path or extension attached;
// both are stripped first.
func (c Catalog) Path(name string) (string, error) {
	path := filepath.Join(c.Dir, StripFilename(name)+"."+c.Ext)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("database %q not found", name)
	}
	return path, nil
}

// StripFilename removes the directory and extension from a filename.
func StripFilename(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
