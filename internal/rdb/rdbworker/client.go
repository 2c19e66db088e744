package rdbworker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
	"github.com/hibohiboo/trpg-scenario-maker/internal/worker"
)

// NewBus returns an uninitialized bus whose worker owns the store returned
// by open. Its ready hook runs migrations.
func NewBus(open func() (*rdb.Store, error), timeout time.Duration, logger *slog.Logger) *worker.Bus {
	logger = logging.Or(logger)
	return worker.New(worker.Options{
		Name: "rdb",
		Spawn: func(ctx context.Context) (worker.Port, error) {
			s, err := open()
			if err != nil {
				return nil, err
			}
			return worker.Owned(worker.Spawn(ctx, NewRouter(s, logger), logger), s), nil
		},
		OnReady: func(ctx context.Context, b *worker.Bus) error {
			res, err := NewClient(b).Migrate(ctx)
			if err != nil {
				return err
			}
			logger.Info("relational schema migrated", "version", res.Version)
			return nil
		},
		Timeout: timeout,
		Logger:  logger,
	})
}

// Client is the typed API of the relational worker.
type Client struct {
	bus *worker.Bus
}

// NewClient wraps b.
func NewClient(b *worker.Bus) *Client {
	return &Client{bus: b}
}

// Bus returns the underlying bus.
func (c *Client) Bus() *worker.Bus { return c.bus }

func (c *Client) Migrate(ctx context.Context) (schema.MigrateResult, error) {
	return worker.RequestInto[schema.MigrateResult](ctx, c.bus, TypeMigrate, schema.Empty{})
}

func (c *Client) ListScenarios(ctx context.Context) ([]schema.Scenario, error) {
	return worker.RequestInto[[]schema.Scenario](ctx, c.bus, TypeScenarioList, schema.Empty{})
}

// GetScenario returns nil when the scenario does not exist.
func (c *Client) GetScenario(ctx context.Context, id string) (*schema.Scenario, error) {
	return worker.RequestInto[*schema.Scenario](ctx, c.bus, TypeScenarioGet, schema.IDRequest{ID: id})
}

func (c *Client) CreateScenario(ctx context.Context, in schema.NewScenario) (schema.Scenario, error) {
	return worker.RequestInto[schema.Scenario](ctx, c.bus, TypeScenarioCreate, in)
}

func (c *Client) UpdateScenario(ctx context.Context, id, title string) (schema.Scenario, error) {
	return worker.RequestInto[schema.Scenario](ctx, c.bus, TypeScenarioUpdate, schema.ScenarioUpdateRequest{ID: id, Title: title})
}

func (c *Client) DeleteScenario(ctx context.Context, id string) error {
	_, err := c.bus.Request(ctx, TypeScenarioDelete, schema.IDRequest{ID: id})
	return err
}

func (c *Client) CountScenarios(ctx context.Context) (int, error) {
	res, err := worker.RequestInto[schema.CountResult](ctx, c.bus, TypeScenarioCount, schema.Empty{})
	return res.Count, err
}

func (c *Client) ExportScenario(ctx context.Context, scenarioID string, imageIDs []string) (schema.ScenarioExport, error) {
	if imageIDs == nil {
		imageIDs = []string{}
	}
	return worker.RequestInto[schema.ScenarioExport](ctx, c.bus, TypeScenarioExport,
		schema.ScenarioExportRequest{ScenarioID: scenarioID, ImageIDs: imageIDs})
}

func (c *Client) ImportScenario(ctx context.Context, data schema.ScenarioExport) error {
	_, err := c.bus.Request(ctx, TypeScenarioImport, data)
	return err
}

// RemoveImport deletes the rows an ImportScenario inserted.
func (c *Client) RemoveImport(ctx context.Context, data schema.ScenarioExport) error {
	_, err := c.bus.Request(ctx, TypeScenarioUnimport, data)
	return err
}

func (c *Client) CreateImage(ctx context.Context, dataURL string) (schema.Image, error) {
	return worker.RequestInto[schema.Image](ctx, c.bus, TypeImageCreate, schema.ImageCreateRequest{DataURL: dataURL})
}

func (c *Client) GetImage(ctx context.Context, id string) (*schema.Image, error) {
	return worker.RequestInto[*schema.Image](ctx, c.bus, TypeImageGet, schema.IDRequest{ID: id})
}

func (c *Client) GetImages(ctx context.Context, ids []string) ([]schema.Image, error) {
	return worker.RequestInto[[]schema.Image](ctx, c.bus, TypeImageGetMany, schema.IDsRequest{IDs: ids})
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	_, err := c.bus.Request(ctx, TypeImageDelete, schema.IDRequest{ID: id})
	return err
}

// Dump snapshots the whole database.
func (c *Client) Dump(ctx context.Context) ([]byte, error) {
	res, err := worker.RequestInto[schema.DumpData](ctx, c.bus, TypeDump, schema.Empty{})
	return res.Data, err
}

// Restore replaces the database with a Dump snapshot.
func (c *Client) Restore(ctx context.Context, data []byte) error {
	_, err := c.bus.Request(ctx, TypeRestore, schema.DumpData{Data: data})
	return err
}
