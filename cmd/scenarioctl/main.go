// Command scenarioctl manages scenarios in a local data directory without
// a browser host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/hibohiboo/trpg-scenario-maker/internal/app"
	"github.com/hibohiboo/trpg-scenario-maker/internal/config"
	"github.com/hibohiboo/trpg-scenario-maker/internal/logging"
)

const usage = `usage: scenarioctl [-config file] [-data dir] <command> [args]

commands:
  list                      list scenarios
  create <title>            create a scenario
  rename <id> <title>       rename a scenario
  delete <id>               delete a scenario
  export <id> <file.zip>    export a scenario archive
  import <file.zip>         import a scenario archive
  save                      flush graph dumps
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "scenarioctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("scenarioctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file (default "+config.DefaultPath+")")
	dataDir := fs.String("data", "", "data directory (overrides config)")
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	need := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s: expected %d argument(s), got %d", cmd, n, len(rest))
		}
		return nil
	}

	switch cmd {
	case "list":
		list, err := a.Scenarios.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Title, s.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()

	case "create":
		if err := need(1); err != nil {
			return err
		}
		s, err := a.Scenarios.Create(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s.ID)
		return nil

	case "rename":
		if err := need(2); err != nil {
			return err
		}
		_, err := a.Scenarios.Rename(ctx, rest[0], rest[1])
		return err

	case "delete":
		if err := need(1); err != nil {
			return err
		}
		return a.Scenarios.Delete(ctx, rest[0])

	case "export":
		if err := need(2); err != nil {
			return err
		}
		data, err := a.Exchange.ExportZip(ctx, rest[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(rest[1], data, 0o644); err != nil {
			return fmt.Errorf("write archive: %w", err)
		}
		fmt.Fprintf(out, "exported %s to %s (%d bytes)\n", rest[0], rest[1], len(data))
		return nil

	case "import":
		if err := need(1); err != nil {
			return err
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
		doc, err := a.Exchange.ImportZip(ctx, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "imported %s (%s)\n", doc.Metadata.ScenarioID, doc.Metadata.ScenarioTitle)
		return nil

	case "save":
		return a.Save(ctx)

	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
