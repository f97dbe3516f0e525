package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/reactive"
	"github.com/dshills/reactive/internal/config"
	"github.com/dshills/reactive/internal/metrics"
	"github.com/dshills/reactive/internal/script"
	"github.com/dshills/reactive/internal/watcher"
)

func newWatchCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Watch a settings file and print every change",
		Long: `Watch loads the settings file, prints it, and prints the whole document
again each time the file changes on disk. With --script, a Lua script is run
against the live settings before watching starts; its settings.set calls are
written back to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), o, cmd.OutOrStdout(), args[0])
		},
	}

	f := cmd.Flags()
	f.Duration("debounce", 100*time.Millisecond, "coalesce file events arriving within this window")
	f.String("script", "", "Lua script to run against the settings")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	_ = o.v.BindPFlag("watch.debounce", f.Lookup("debounce"))
	_ = o.v.BindPFlag("watch.script", f.Lookup("script"))
	_ = o.v.BindPFlag("watch.metrics-addr", f.Lookup("metrics-addr"))

	return cmd
}

func runWatch(ctx context.Context, o *options, out io.Writer, path string) error {
	settings := config.NewSettings(config.EmptyDocument(),
		reactive.WithName("settings"),
		reactive.WithLogger(o.logger),
	)
	defer settings.Close()

	fsync, err := config.NewFileSync(path, settings, config.WithSyncLogger(o.logger))
	if err != nil {
		return err
	}
	defer fsync.Close()

	if _, err := fsync.Load(); err != nil {
		return err
	}
	doc, err := settings.Snapshot()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, doc)

	printer := settings.Watch("", func(c config.Change) {
		fmt.Fprintln(out, c.New.Raw)
	})
	defer printer.Close()

	w, err := watcher.New(path,
		watcher.WithDebounce(o.v.GetDuration("watch.debounce")),
		watcher.WithLogger(o.logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	// Watcher events arrive on the watcher's goroutine. Reloads are handed to
	// this goroutine so that script callbacks always run on one goroutine.
	reloads := make(chan watcher.Event, 1)
	forward := w.Changed().Hook(func(ev watcher.Event) {
		select {
		case reloads <- ev:
		default:
		}
	})
	defer forward.Close()

	if scriptPath := o.v.GetString("watch.script"); scriptPath != "" {
		rt, err := script.NewRuntime(
			script.WithOutput(out),
			script.WithLogger(o.logger),
			script.WithSettings(settings),
		)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.DoFile(scriptPath); err != nil {
			return fmt.Errorf("running %s: %w", scriptPath, err)
		}
	}

	if addr := o.v.GetString("watch.metrics-addr"); addr != "" {
		stop := serveMetrics(o.logger, addr, map[string]metrics.Source{
			"settings": settings.Property(),
			"watcher":  w.Changed(),
		})
		defer stop()
	}

	o.logger.Info("watching", "path", w.Path())

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("shutting down")
			return nil

		case ev := <-reloads:
			o.logger.Debug("file event", "path", ev.Path, "op", ev.Op.String())
			changed, err := fsync.Load()
			if err != nil {
				o.logger.Error("reload failed", "path", path, "error", err)
				recoverPoison(o.logger, settings)
				continue
			}
			if changed {
				o.logger.Info("settings reloaded", "path", path)
			}

		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			o.logger.Warn("watcher error", "error", err)
		}
	}
}

// recoverPoison clears a poisoned settings property so that later reloads
// keep working after a failing watcher.
func recoverPoison(logger *slog.Logger, settings *config.Settings) {
	p := settings.Property()
	if p.IsPoisoned() {
		logger.Warn("clearing poisoned settings")
		p.ClearPoison()
	}
}

// serveMetrics serves the given sources on addr and returns a function that
// shuts the server down.
func serveMetrics(logger *slog.Logger, addr string, sources map[string]metrics.Source) func() {
	collector := metrics.NewCollector()
	for name, src := range sources {
		collector.Add(name, src)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collector, collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
