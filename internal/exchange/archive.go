// Package exchange moves one scenario in and out of both stores as a
// versioned document, and packs that document into a ZIP archive.
package exchange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/hibohiboo/trpg-scenario-maker/internal/apperr"
	"github.com/hibohiboo/trpg-scenario-maker/internal/schema"
)

// Document is a snapshot of one scenario across both stores.
type Document = schema.ExportDocument

// Version is written into every exported document.
const Version = schema.ExportVersion

// Archive entry names.
const (
	EntryMetadata      = "metadata.json"
	EntryNodes         = "graphdb/nodes.json"
	EntryRelationships = "graphdb/relationships.json"
	EntryScenario      = "rdb/scenario.json"
	EntryImages        = "rdb/images.json"
)

// ErrInvalidArchive is returned when an archive lacks a required entry.
var ErrInvalidArchive = apperr.Structural("Invalid ZIP structure: missing required files", nil)

// maxEntrySize bounds a single decompressed entry.
const maxEntrySize = 256 << 20

// Validate checks a document: every field, known labels and relationship
// types, a supported version, and one scenario id throughout.
func Validate(doc *Document) error {
	if doc == nil {
		return apperr.Validation("export document is nil", nil)
	}
	if err := schema.Validate(doc); err != nil {
		return err
	}
	if !strings.HasPrefix(doc.Metadata.Version, "1.") {
		return apperr.Validation(fmt.Sprintf("unsupported export version %q", doc.Metadata.Version), nil)
	}
	id := doc.Metadata.ScenarioID
	if doc.RDB.Scenario.ID != id {
		return apperr.Validation(fmt.Sprintf("metadata scenario %s does not match rdb scenario %s", id, doc.RDB.Scenario.ID), nil)
	}
	for _, n := range doc.GraphDB.Nodes {
		if n.Label == schema.LabelScenario && n.ID == id {
			return nil
		}
	}
	return apperr.Validation(fmt.Sprintf("graph section has no Scenario node %s", id), nil)
}

// ExportToZip validates doc and writes its five entries.
func ExportToZip(doc *Document) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range []struct {
		name  string
		value any
	}{
		{EntryMetadata, doc.Metadata},
		{EntryNodes, doc.GraphDB.Nodes},
		{EntryRelationships, doc.GraphDB.Relationships},
		{EntryScenario, doc.RDB.Scenario},
		{EntryImages, doc.RDB.Images},
	} {
		data, err := json.MarshalIndent(entry.value, "", "  ")
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("encode %s: %w", entry.name, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entry.name,
			Method:   zip.Deflate,
			Modified: doc.Metadata.ExportedAt,
		})
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("create %s: %w", entry.name, err)
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write %s: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// ImportFromZip reads and validates an archive written by ExportToZip.
// Every entry must be present.
func ImportFromZip(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperr.Structural("open archive", err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	for _, name := range []string{EntryMetadata, EntryNodes, EntryRelationships, EntryScenario, EntryImages} {
		if files[name] == nil {
			return nil, ErrInvalidArchive
		}
	}

	doc := &Document{}
	if doc.Metadata, err = decodeEntry[schema.ExportMetadata](files[EntryMetadata]); err != nil {
		return nil, err
	}
	if doc.GraphDB.Nodes, err = decodeEntry[[]schema.NodeRecord](files[EntryNodes]); err != nil {
		return nil, err
	}
	if doc.GraphDB.Relationships, err = decodeEntry[[]schema.RelRecord](files[EntryRelationships]); err != nil {
		return nil, err
	}
	if doc.RDB.Scenario, err = decodeEntry[schema.Scenario](files[EntryScenario]); err != nil {
		return nil, err
	}
	if doc.RDB.Images, err = decodeEntry[[]schema.Image](files[EntryImages]); err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeEntry[T any](f *zip.File) (T, error) {
	var zero T
	rc, err := f.Open()
	if err != nil {
		return zero, apperr.Structural("open "+f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return zero, apperr.Structural("read "+f.Name, err)
	}
	if len(data) > maxEntrySize {
		return zero, apperr.Structural(f.Name+": entry too large", nil)
	}
	v, err := schema.Parse[T](data)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", f.Name, err)
	}
	return v, nil
}
