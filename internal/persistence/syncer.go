// Package persistence keeps the in-memory graph engine durable by dumping
// every label table to a file system and reading the dumps back on boot.
package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// SeedScenarioID is the id of the scenario created on first run.
const SeedScenarioID = "00000000-0000-4000-8000-000000000001"

// DefaultSeedTitle is used when no seed title is configured.
const DefaultSeedTitle = "はじめてのシナリオ"

// Syncer saves and loads the graph engine's tables.
type Syncer struct {
	engine    *graph.Engine
	fs        VFS
	seedTitle string
	logger    *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithSeedTitle sets the title of the first-run scenario.
func WithSeedTitle(title string) Option {
	return func(s *Syncer) {
		if title != "" {
			s.seedTitle = title
		}
	}
}

// NewSyncer returns a Syncer dumping e into fsys.
func NewSyncer(e *graph.Engine, fsys VFS, logger *slog.Logger, opts ...Option) *Syncer {
	s := &Syncer{engine: e, fs: fsys, seedTitle: DefaultSeedTitle, logger: logging.Or(logger)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DumpPath is the file a label is dumped to.
func DumpPath(label string) string {
	return "/" + label + ".csv"
}

// Save overwrites the dump of every table. Node tables are written in one
// batch and relationship tables in a second.
func (s *Syncer) Save(ctx context.Context) error {
	sch := s.engine.Schema()
	for _, batch := range [][]string{sch.NodeLabels(), sch.RelTypes()} {
		g, gctx := errgroup.WithContext(ctx)
		for _, label := range batch {
			g.Go(func() error {
				buf := getBuffer()
				defer putBuffer(buf)
				n, err := s.engine.CopyTo(gctx, label, buf)
				if err != nil {
					return err
				}
				if err := s.fs.WriteFile(DumpPath(label), buf.Bytes()); err != nil {
					return fmt.Errorf("write %s: %w", DumpPath(label), err)
				}
				s.logger.Debug("saved table", "table", label, "rows", n)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("save graph: %w", err)
		}
	}
	s.logger.Info("graph saved", "tables", len(sch.NodeLabels())+len(sch.RelTypes()))
	return nil
}

// Load reads every dump back into the engine. Missing dumps are skipped.
// The tables are expected to be empty.
func (s *Syncer) Load(ctx context.Context) error {
	sch := s.engine.Schema()
	labels := append(sch.NodeLabels(), sch.RelTypes()...)
	g, gctx := errgroup.WithContext(ctx)
	for _, label := range labels {
		g.Go(func() error {
			data, err := s.fs.ReadFile(DumpPath(label))
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", DumpPath(label), err)
			}
			n, err := s.engine.CopyFrom(gctx, label, bytes.NewReader(data))
			if err != nil {
				return err
			}
			s.logger.Debug("loaded table", "table", label, "rows", n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	return nil
}

// EnsureInitialData creates the seed scenario when the graph has no
// scenario at all, and saves right away. It reports whether it seeded.
func (s *Syncer) EnsureInitialData(ctx context.Context) (bool, error) {
	n, err := s.engine.Count(ctx, schema.LabelScenario)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if err := s.engine.CreateNode(ctx, schema.LabelScenario, SeedScenarioID, graph.Props{"title": s.seedTitle}); err != nil {
		return false, fmt.Errorf("seed scenario: %w", err)
	}
	s.logger.Info("seeded initial scenario", "id", SeedScenarioID, "title", s.seedTitle)
	return true, s.Save(ctx)
}

// Boot prepares the engine for use: schema, then dumps, then seed data.
func (s *Syncer) Boot(ctx context.Context) error {
	if err := s.engine.CreateSchema(ctx); err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	_, err := s.EnsureInitialData(ctx)
	return err
}
