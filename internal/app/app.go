// Package app wires both store workers, their clients and the services
// that span them.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/config"
	"github.com/hibohiboo/trpg-scenario-maker/internal/exchange"
	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/graph/graphworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb/rdbworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// App owns both workers for its lifetime.
type App struct {
	Relational *rdbworker.Client
	Graph      *graphworker.Client
	Scenarios  *ScenarioService
	Exchange   *exchange.Service

	logger *slog.Logger
}

// New starts and initializes both workers. The relational worker migrates
// and the graph worker boots from its dumps before New returns. ctx bounds
// startup only; the workers run until Close.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	logger = logging.Or(logger)

	fsys, err := dumpFS(cfg)
	if err != nil {
		return nil, err
	}
	relDSN := cfg.RelationalDSN()
	if relDSN != ":memory:" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	timeout := cfg.Worker.RequestTimeout.Std()
	relBus := rdbworker.NewBus(func() (*rdb.Store, error) { return rdb.Open(relDSN) }, timeout, logger)
	graphBus := graphworker.NewBus(graphworker.Options{
		Open: func() (*graph.Engine, error) {
			return graph.Open(cfg.GraphDSN(), graph.DefaultSchema(), logger)
		},
		FS:        fsys,
		SeedTitle: cfg.Seed.Title,
		AutoSave:  cfg.Graph.AutoSave,
		Timeout:   timeout,
		Logger:    logger,
	})

	if err := relBus.Initialize(ctx); err != nil {
		relBus.Terminate()
		return nil, err
	}
	if err := graphBus.Initialize(ctx); err != nil {
		relBus.Terminate()
		graphBus.Terminate()
		return nil, err
	}

	rel := rdbworker.NewClient(relBus)
	g := graphworker.NewClient(graphBus)
	a := &App{
		Relational: rel,
		Graph:      g,
		Scenarios:  NewScenarioService(rel, g, logger),
		Exchange:   exchange.NewService(rel, g, logger),
		logger:     logger,
	}
	if err := a.Scenarios.ensureSeedRow(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close terminates both workers.
func (a *App) Close() {
	a.Graph.Bus().Terminate()
	a.Relational.Bus().Terminate()
}

func dumpFS(cfg config.Config) (persistence.VFS, error) {
	if cfg.Graph.Memory {
		return persistence.NewMemFS(), nil
	}
	dir := cfg.GraphDumpDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create graph dump dir: %w", err)
	}
	return persistence.DirFS{Root: dir}, nil
}

// Save flushes the graph dumps. The relational store writes through.
func (a *App) Save(ctx context.Context) error {
	return a.Graph.Save(ctx)
}

// Scenario returns the relational row of a scenario.
func (a *App) Scenario(ctx context.Context, id string) (schema.Scenario, error) {
	s, err := a.Relational.GetScenario(ctx, id)
	if err != nil {
		return schema.Scenario{}, err
	}
	if s == nil {
		return schema.Scenario{}, apperr.NotFoundf("scenario %s: not found", id)
	}
	return *s, nil
}
