//go:build js && wasm

// Command wasm hosts one store worker inside a browser Web Worker. The
// page posts request envelopes as JSON strings and receives response
// envelopes through the registered callback.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/hibohiboo/trpg-scenario-maker/internal/graph"
	"github.com/hibohiboo/trpg-scenario-maker/internal/graph/graphworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
	"github.com/hibohiboo/trpg-scenario-maker/internal/persistence"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb"
	"github.com/hibohiboo/trpg-scenario-maker/internal/rdb/rdbworker"
	"github.com/hibohiboo/trpg-scenario-maker/internal/worker"
)

const Version = "1.0.0"

const queueSize = 64

var (
	logger  *slog.Logger
	router  *worker.Router
	dumps   = persistence.NewMemFS()
	inbox   = make(chan string, queueSize)
	onReply js.Value
)

func main() {
	logger = logging.New(os.Stderr, "info")

	js.Global().Set("TrpgWorker", js.ValueOf(map[string]interface{}{
		"version":     js.FuncOf(getVersion),
		"start":       js.FuncOf(start),
		"onMessage":   js.FuncOf(setOnMessage),
		"postMessage": js.FuncOf(postMessage),
		"readDump":    js.FuncOf(readDump),
		"writeDump":   js.FuncOf(writeDump),
		"dumpNames":   js.FuncOf(dumpNames),
	}))
	fmt.Println("[trpg] WASM Ready v" + Version)

	go serve(context.Background())
	select {}
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return Version
}

// start: [kind "rdb"|"graph", autoSave bool (graph only)]
// Graph dumps written with writeDump before start are loaded on boot.
func start(this js.Value, args []js.Value) interface{} {
	if router != nil {
		return errorResult("already started")
	}
	if len(args) < 1 {
		return errorResult("start requires 1 arg: kind")
	}
	switch kind := args[0].String(); kind {
	case "rdb":
		s, err := rdb.OpenMemory()
		if err != nil {
			return errorResult("open rdb: " + err.Error())
		}
		router = rdbworker.NewRouter(s, logger)
	case "graph":
		e, err := graph.OpenMemory(logger)
		if err != nil {
			return errorResult("open graph: " + err.Error())
		}
		autoSave := len(args) > 1 && args[1].Truthy()
		syncer := persistence.NewSyncer(e, dumps, logger)
		router = graphworker.NewRouter(graph.NewStore(e), syncer, autoSave, logger)
	default:
		return errorResult("unknown worker kind: " + kind)
	}
	logger.Info("worker started", "kind", args[0].String(), "types", len(router.Types()))
	return successResult("started")
}

// onMessage: [callback (responseJSON string)]
func setOnMessage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return errorResult("onMessage requires a function")
	}
	onReply = args[0]
	return nil
}

// postMessage: [requestJSON string]
// Requests are handled one at a time in arrival order.
func postMessage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("postMessage requires 1 arg: requestJSON")
	}
	if router == nil {
		return errorResult("worker not started")
	}
	select {
	case inbox <- args[0].String():
		return nil
	default:
		return errorResult("worker queue full")
	}
}

func serve(ctx context.Context) {
	for msg := range inbox {
		out := router.DispatchJSON(ctx, []byte(msg))
		if onReply.Type() != js.TypeFunction {
			logger.Warn("response dropped, no onMessage callback")
			continue
		}
		onReply.Invoke(string(out))
	}
}

// readDump: [name string]
// Returns: Uint8Array, or null when absent
func readDump(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("readDump requires 1 arg: name")
	}
	data, err := dumps.ReadFile(args[0].String())
	if err != nil {
		return js.Null()
	}
	arr := js.Global().Get("Uint8Array").New(len(data))
	js.CopyBytesToJS(arr, data)
	return arr
}

// writeDump: [name string, data Uint8Array]
func writeDump(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("writeDump requires 2 args: name, data")
	}
	data := make([]byte, args[1].Get("length").Int())
	js.CopyBytesToGo(data, args[1])
	if err := dumps.WriteFile(args[0].String(), data); err != nil {
		return errorResult("writeDump: " + err.Error())
	}
	return nil
}

// dumpNames returns the names of all stored dumps.
func dumpNames(this js.Value, args []js.Value) interface{} {
	names := dumps.Names()
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return js.ValueOf(out)
}

func errorResult(msg string) interface{} {
	b, _ := json.Marshal(map[string]interface{}{"error": msg})
	return string(b)
}

func successResult(msg string) interface{} {
	b, _ := json.Marshal(map[string]interface{}{"success": msg})
	return string(b)
}
