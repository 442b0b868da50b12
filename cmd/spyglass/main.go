package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/spyglass-dev/spyglass/internal/config"
	"github.com/spyglass-dev/spyglass/internal/database"
	"github.com/spyglass-dev/spyglass/internal/database/repository"
	"github.com/spyglass-dev/spyglass/internal/grid"
	"github.com/spyglass-dev/spyglass/internal/tui"
)

// searchEndpoint is the endpoint template bound into every table
// descriptor; the in-process fetcher serves it directly.
const searchEndpoint = "/search"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := seed(ctx, cfg); err != nil {
			log.Fatalf("seed: %v", err)
		}
		return
	}

	if logPath := os.Getenv("SPYGLASS_LOG"); logPath != "" {
		f, err := tea.LogToFile(logPath, "spyglass")
		if err != nil {
			log.Fatalf("log file: %v", err)
		}
		defer f.Close()
	}

	catalog := database.Catalog{Dir: cfg.Database.Dir, Ext: cfg.Database.Ext}
	names, err := catalog.Names()
	if err != nil {
		log.Fatalf("list snapshots: %v", err)
	}

	// Open the named snapshot, or the most recent one.
	name := ""
	if len(os.Args) > 1 {
		name = os.Args[1]
	} else {
		recent, err := catalog.MostRecent()
		if err != nil {
			log.Fatalf("%v (run 'spyglass seed' to create a sample snapshot)", err)
		}
		name = database.StripFilename(recent)
	}

	opener := func(ctx context.Context, name string) (tui.Session, error) {
		return openSession(ctx, cfg, catalog, name)
	}

	session, err := opener(ctx, name)
	if err != nil {
		log.Fatalf("open snapshot: %v", err)
	}
	defer session.Close()

	loc := time.Local
	if tz := cfg.UI.Timezone; tz != "" && tz != "Local" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			log.Printf("warn: using local timezone due to load failure: %v", err)
		}
	}

	app := tui.New(ctx, cfg, names, session, loc)
	app.SetOpener(opener)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// openSession opens one snapshot database and discovers its searchable
// tables, filtered through the configured visibility overrides.
func openSession(ctx context.Context, cfg config.Config, catalog database.Catalog, name string) (tui.Session, error) {
	path, err := catalog.Path(name)
	if err != nil {
		return tui.Session{}, err
	}

	db, err := database.Open(path)
	if err != nil {
		return tui.Session{}, fmt.Errorf("open %s: %w", path, err)
	}

	repo := repository.NewSearchRepo(db)
	src := repository.ConfigSource{Repo: repo, Overrides: cfg.Tables}

	descriptors, err := grid.Discover(ctx, src, searchEndpoint)
	if err != nil {
		db.Close()
		return tui.Session{}, err
	}

	columns := make(map[string][]string, len(descriptors))
	for _, d := range descriptors {
		columns[d.Name] = d.Columns
	}

	return tui.Session{
		Name:        database.StripFilename(path),
		Fetcher:     &repository.Searcher{Repo: repo, Columns: columns},
		Descriptors: descriptors,
		Close:       db.Close,
	}, nil
}

// seed creates a fresh sample snapshot in the configured directory.
func seed(ctx context.Context, cfg config.Config) error {
	if err := os.MkdirAll(cfg.Database.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir snapshot dir: %w", err)
	}

	now := time.Now()
	path := filepath.Join(cfg.Database.Dir, database.SnapshotFilename("watchtower", now, cfg.Database.Ext))

	if err := database.RunMigrations(path, "internal/database/migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	db, err := database.OpenWritable(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Seed(ctx, db, now); err != nil {
		return err
	}

	fmt.Printf("seeded %s\n", path)
	return nil
}
