package rdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// =============================================================================
// Scenario export/import
// =============================================================================

// ExportScenario returns a scenario row and the referenced images that exist.
func (s *Store) ExportScenario(ctx context.Context, scenarioID string, imageIDs []string) (schema.ScenarioExport, error) {
	sc, err := s.Scenarios.FindByID(ctx, scenarioID)
	if err != nil {
		return schema.ScenarioExport{}, err
	}
	if sc == nil {
		return schema.ScenarioExport{}, apperr.NotFoundf("export scenario %s: not found", scenarioID)
	}
	images, err := s.Images.FindByIDs(ctx, imageIDs)
	if err != nil {
		return schema.ScenarioExport{}, err
	}
	return schema.Parse[schema.ScenarioExport](schema.ScenarioExport{Scenario: *sc, Images: images})
}

// ImportScenario inserts the scenario row and image rows in one transaction,
// preserving their timestamps. Existing rows with the same ids make the
// whole import fail; nothing is overwritten.
func (s *Store) ImportScenario(ctx context.Context, data schema.ScenarioExport) error {
	if err := schema.Validate(data); err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := insertScenarioTx(ctx, tx, data.Scenario); err != nil {
			return err
		}
		for _, img := range data.Images {
			if err := insertImageTx(ctx, tx, img); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveImport deletes the rows written by ImportScenario. Used to
// compensate when the graph half of an import fails.
func (s *Store) RemoveImport(ctx context.Context, data schema.ScenarioExport) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, data.Scenario.ID); err != nil {
			return fmt.Errorf("delete scenario %s: %w", data.Scenario.ID, err)
		}
		for _, img := range data.Images {
			if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, img.ID); err != nil {
				return fmt.Errorf("delete image %s: %w", img.ID, err)
			}
		}
		return nil
	})
}

// =============================================================================
// Whole-database dump (host storage sync)
// =============================================================================

type dumpData struct {
	Version   int               `json:"version"`
	Scenarios []schema.Scenario `json:"scenarios"`
	Images    []schema.Image    `json:"images"`
}

// Dump serializes every table to JSON bytes.
// Used by hosts that keep the database in memory and persist it elsewhere.
func (s *Store) Dump(ctx context.Context) ([]byte, error) {
	data := dumpData{Version: SchemaVersion}

	scenarioRows, err := s.db.QueryContext(ctx, `SELECT `+scenarioColumns+` FROM scenarios ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("dump scenarios: %w", err)
	}
	for scenarioRows.Next() {
		sc, err := scanScenario(scenarioRows)
		if err != nil {
			scenarioRows.Close()
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		data.Scenarios = append(data.Scenarios, sc)
	}
	scenarioRows.Close()
	if err := scenarioRows.Err(); err != nil {
		return nil, err
	}

	imageRows, err := s.db.QueryContext(ctx, `SELECT id, data_url, created_at FROM images ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("dump images: %w", err)
	}
	for imageRows.Next() {
		img, err := scanImage(imageRows)
		if err != nil {
			imageRows.Close()
			return nil, fmt.Errorf("scan image: %w", err)
		}
		data.Images = append(data.Images, img)
	}
	imageRows.Close()
	if err := imageRows.Err(); err != nil {
		return nil, err
	}

	return json.Marshal(data)
}

// Restore replaces the database contents with a Dump.
func (s *Store) Restore(ctx context.Context, raw []byte) error {
	var data dumpData
	if err := json.Unmarshal(raw, &data); err != nil {
		return apperr.Validation("restore: invalid dump", err)
	}
	if data.Version > SchemaVersion {
		return apperr.Validation(fmt.Sprintf("restore: dump version %d is newer than %d", data.Version, SchemaVersion), nil)
	}
	if err := schema.Validate(data.Scenarios); err != nil {
		return err
	}
	if err := schema.Validate(data.Images); err != nil {
		return err
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, table := range []string{"scenarios", "images"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, sc := range data.Scenarios {
			if err := insertScenarioTx(ctx, tx, sc); err != nil {
				return err
			}
		}
		for _, img := range data.Images {
			if err := insertImageTx(ctx, tx, img); err != nil {
				return err
			}
		}
		return nil
	})
}
