// Package rdbworker hosts the relational store behind the worker bus: the
// message handlers that run inside the worker and the typed client the
// application calls.
package rdbworker

// Message types understood by the relational worker.
const (
	TypeMigrate = "rdb:migrate"

	TypeScenarioList     = "rdb:scenario:list"
	TypeScenarioGet      = "rdb:scenario:get"
	TypeScenarioCreate   = "rdb:scenario:create"
	TypeScenarioUpdate   = "rdb:scenario:update"
	TypeScenarioDelete   = "rdb:scenario:delete"
	TypeScenarioCount    = "rdb:scenario:count"
	TypeScenarioExport   = "rdb:scenario:export"
	TypeScenarioImport   = "rdb:scenario:import"
	TypeScenarioUnimport = "rdb:scenario:unimport"

	TypeImageCreate  = "rdb:image:create"
	TypeImageGet     = "rdb:image:get"
	TypeImageGetMany = "rdb:image:getMany"
	TypeImageDelete  = "rdb:image:delete"

	TypeDump    = "rdb:dump"
	TypeRestore = "rdb:restore"
)
