package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/odysseus0/svgsafe/internal/config"
	"github.com/odysseus0/svgsafe/internal/fetch"
	applog "github.com/odysseus0/svgsafe/internal/log"
	"github.com/odysseus0/svgsafe/internal/sanitize"
	"github.com/odysseus0/svgsafe/internal/store"
)

type App struct {
	cfg      config.Config
	logger   zerolog.Logger
	db       *sql.DB
	store    *store.Store
	engine   *sanitize.Engine
	renderer *fetch.Renderer
	fetcher  *fetch.Fetcher
}

// NewApp builds the engine from cfg. The history database is opened only
// when openStore is set.
func NewApp(cfg config.Config, dbPath string, openStore bool) (*App, error) {
	cfg.DBPath = dbPath
	logger, err := applog.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	table, err := cfg.RuleTable()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	engine, err := sanitize.New(table, cfg.Limits(),
		sanitize.WithLogger(logger),
		sanitize.WithRemoteReferences(cfg.AllowRemoteReferences),
	)
	if err != nil {
		return nil, err
	}
	renderer := fetch.NewRenderer()

	app := &App{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		renderer: renderer,
		fetcher:  fetch.NewFetcher(engine, renderer, cfg, logger),
	}
	if openStore {
		db, err := store.OpenDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		app.db = db
		app.store = store.NewStore(db)
	}
	return app, nil
}

// record stores a run in the history when history is enabled. Failures are
// logged and never fail the command.
func (a *App) record(ctx context.Context, in store.RecordRunInput) {
	if a.store == nil || !a.cfg.RecordHistory {
		return
	}
	if _, err := a.store.RecordRun(ctx, in); err != nil {
		a.logger.Warn().Err(err).Str("mode", in.Mode).Msg("record run failed")
		return
	}
	if a.cfg.RetentionDays <= 0 {
		return
	}
	n, err := a.store.PruneRunsOlderThan(ctx, a.cfg.RetentionDays)
	if err != nil {
		a.logger.Warn().Err(err).Msg("prune history failed")
		return
	}
	if n > 0 {
		a.logger.Debug().Int64("removed", n).Int("days", a.cfg.RetentionDays).Msg("pruned history")
	}
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
