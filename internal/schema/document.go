package schema

import "time"

// ExportVersion is the version written into every export document.
const ExportVersion = "1.0.0"

// ExportMetadata describes an export document.
type ExportMetadata struct {
	Version       string    `json:"version" validate:"required"`
	ExportedAt    time.Time `json:"exportedAt" validate:"required"`
	ScenarioID    string    `json:"scenarioId" validate:"required"`
	ScenarioTitle string    `json:"scenarioTitle" validate:"required"`
}

// GraphSection is the graph-store half of an export document.
type GraphSection struct {
	Nodes         []NodeRecord `json:"nodes" validate:"dive"`
	Relationships []RelRecord  `json:"relationships" validate:"dive"`
}

// RDBSection is the relational half of an export document.
type RDBSection struct {
	Scenario Scenario `json:"scenario"`
	Images   []Image  `json:"images" validate:"dive"`
}

// ExportDocument is a versioned snapshot of one scenario across both stores.
type ExportDocument struct {
	Metadata ExportMetadata `json:"metadata"`
	GraphDB  GraphSection   `json:"graphdb"`
	RDB      RDBSection     `json:"rdb"`
}
