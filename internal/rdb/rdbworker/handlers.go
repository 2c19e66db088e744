package rdbworker

import (
	"context"
	"log/slog"

	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/internal/worker"
)

// ok is the reply of handlers that return nothing.
var ok = schema.Ack{OK: true}

// NewRouter registers every relational message against s.
func NewRouter(s *rdb.Store, logger *slog.Logger) *worker.Router {
	r := worker.NewRouter(logger)

	worker.Handle(r, TypeMigrate, func(ctx context.Context, _ schema.Empty) (schema.MigrateResult, error) {
		v, err := s.Migrate(ctx)
		return schema.MigrateResult{Version: v}, err
	})

	worker.Handle(r, TypeScenarioList, func(ctx context.Context, _ schema.Empty) ([]schema.Scenario, error) {
		return s.Scenarios.FindAll(ctx)
	})
	worker.Handle(r, TypeScenarioGet, func(ctx context.Context, in schema.IDRequest) (*schema.Scenario, error) {
		return s.Scenarios.FindByID(ctx, in.ID)
	})
	worker.Handle(r, TypeScenarioCreate, func(ctx context.Context, in schema.NewScenario) (schema.Scenario, error) {
		return s.Scenarios.Create(ctx, in)
	})
	worker.Handle(r, TypeScenarioUpdate, func(ctx context.Context, in schema.ScenarioUpdateRequest) (schema.Scenario, error) {
		return s.Scenarios.Update(ctx, in.ID, schema.ScenarioUpdate{Title: in.Title})
	})
	worker.Handle(r, TypeScenarioDelete, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Scenarios.Delete(ctx, in.ID)
	})
	worker.Handle(r, TypeScenarioCount, func(ctx context.Context, _ schema.Empty) (schema.CountResult, error) {
		n, err := s.Scenarios.Count(ctx)
		return schema.CountResult{Count: n}, err
	})
	worker.Handle(r, TypeScenarioExport, func(ctx context.Context, in schema.ScenarioExportRequest) (schema.ScenarioExport, error) {
		return s.ExportScenario(ctx, in.ScenarioID, in.ImageIDs)
	})
	worker.Handle(r, TypeScenarioImport, func(ctx context.Context, in schema.ScenarioExport) (schema.Ack, error) {
		return ok, s.ImportScenario(ctx, in)
	})
	worker.Handle(r, TypeScenarioUnimport, func(ctx context.Context, in schema.ScenarioExport) (schema.Ack, error) {
		return ok, s.RemoveImport(ctx, in)
	})

	worker.Handle(r, TypeImageCreate, func(ctx context.Context, in schema.ImageCreateRequest) (schema.Image, error) {
		return s.Images.Create(ctx, in.DataURL)
	})
	worker.Handle(r, TypeImageGet, func(ctx context.Context, in schema.IDRequest) (*schema.Image, error) {
		return s.Images.FindByID(ctx, in.ID)
	})
	worker.Handle(r, TypeImageGetMany, func(ctx context.Context, in schema.IDsRequest) ([]schema.Image, error) {
		return s.Images.FindByIDs(ctx, in.IDs)
	})
	worker.Handle(r, TypeImageDelete, func(ctx context.Context, in schema.IDRequest) (schema.Ack, error) {
		return ok, s.Images.Delete(ctx, in.ID)
	})

	worker.Handle(r, TypeDump, func(ctx context.Context, _ schema.Empty) (schema.DumpData, error) {
		data, err := s.Dump(ctx)
		return schema.DumpData{Data: data}, err
	})
	worker.Handle(r, TypeRestore, func(ctx context.Context, in schema.DumpData) (schema.Ack, error) {
		return ok, s.Restore(ctx, in.Data)
	})

	return r
}
