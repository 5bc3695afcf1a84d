// Command meshchurn imports a community mesh topology, finds the links
// whose loss would partition it, and simulates failures of the others.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/meshchurn/pkg/analysis"
	"github.com/ritzau/meshchurn/pkg/analysis/api"
	"github.com/ritzau/meshchurn/pkg/cnml"
	"github.com/ritzau/meshchurn/pkg/config"
	"github.com/ritzau/meshchurn/pkg/logging"
	"github.com/ritzau/meshchurn/pkg/metrics"
	"github.com/ritzau/meshchurn/pkg/output"
	"github.com/ritzau/meshchurn/pkg/persist"
	"github.com/ritzau/meshchurn/pkg/watcher"
	"github.com/ritzau/meshchurn/pkg/web"
)

const (
	quietPeriod = 300 * time.Millisecond
	maxWait     = 2 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logging.Error("meshchurn failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := config.NewFlagSet("meshchurn")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	if cfg.Watch && cfg.Source != "file" {
		return fmt.Errorf("--watch needs --source=file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := persist.NewStore(nil)
	reg := metrics.DefaultRegistry()

	var server *web.Server
	var sink analysis.Sink
	if cfg.WebMode {
		server = web.NewServer(reg)
		sink = server
	}

	runner := analysis.NewRunner(cfg, newSource(cfg, store), store, sink, reg)
	opts := analysis.OptionsFromConfig(cfg, "initial analysis")
	if server != nil {
		server.SetSimulator(runner, opts)
	}

	// One-shot: analyse, report, exit.
	if server == nil && !cfg.Watch {
		report, err := runner.Run(ctx, opts)
		if err != nil {
			return err
		}
		output.PrintReport(os.Stdout, report.Summary, report.Bridges)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if server != nil {
		g.Go(func() error {
			return server.Start(gctx, cfg.Port)
		})
	}
	g.Go(func() error {
		// A failed run is published and logged; serving and watching go on.
		if report, err := runner.Run(gctx, opts); err == nil {
			output.PrintReport(os.Stdout, report.Summary, report.Bridges)
		}
		if cfg.Watch {
			return watch(gctx, flags, cfg, runner, server)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return err
	}
	if cfg.LogFormat == "json" {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
	return nil
}

func newSource(cfg *config.Config, store *persist.Store) api.Source {
	if cfg.Source == "file" {
		return persist.NewFileSource(store)
	}
	return cnml.NewSource(cfg)
}

// watch re-runs the analysis for each debounced change of the input or
// config files until ctx is done.
func watch(ctx context.Context, flags *pflag.FlagSet, cfg *config.Config, runner *analysis.Runner, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(cfg.Input, config.Files...)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), quietPeriod, maxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		change := watcher.AnalyzeChanges(event)
		reason := fmt.Sprintf("%s changed", event.Type)
		logging.Info("Change detected", "type", event.Type, "files", change.ChangedFiles)

		reload := change.ReloadTopology
		if change.ReloadConfig {
			next, err := config.Load(flags)
			if err != nil {
				logging.Warn("Keeping previous config", "error", err)
				continue
			}
			if next.Input != cfg.Input {
				logging.Warn("Input path changed; restart to watch the new file", "input", next.Input)
			}
			if next.Source != cfg.Source || next.Input != cfg.Input || next.Area != cfg.Area {
				reload = true
			}
			cfg = next
			runner.SetConfig(cfg)
		}

		opts := analysis.OptionsFromConfig(cfg, reason)
		opts.Reuse = !reload && runner.Latest() != nil
		if server != nil {
			server.SetSimulator(runner, analysis.OptionsFromConfig(cfg, "simulate request"))
		}

		report, err := runner.Run(ctx, opts)
		if err != nil {
			continue
		}
		output.PrintReport(os.Stdout, report.Summary, report.Bridges)
	}
	return ctx.Err()
}
