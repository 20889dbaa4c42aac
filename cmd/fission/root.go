package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hupe1980/fission"
	"github.com/hupe1980/fission/config"
)

// app carries state shared by the subcommands.
type app struct {
	configPath string
	cfg        config.Config

	logger   *fission.Logger
	registry *prometheus.Registry
	stderr   io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "fission",
		Short:         "Grow an instruction dataset from a seed set",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}

			fs := cmd.Flags()
			override(fs, "log-level", &cfg.Log.Level)
			override(fs, "log-format", &cfg.Log.Format)
			override(fs, "metrics-addr", &cfg.Metrics.Addr)

			a.cfg = cfg
			a.logger = newLogger(cfg, a.stderr)
			a.registry = prometheus.NewRegistry()

			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	pf.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	pf.String("log-format", defaults.Log.Format, "log format (text, json)")
	pf.String("metrics-addr", defaults.Metrics.Addr, "serve Prometheus metrics on this address")

	root.AddCommand(newRunCmd(a), newSeedCmd(a))

	return root
}

// override copies the value of a flag into dst when the flag was set on the
// command line, so that flags win over the config file.
func override[T any](fs *pflag.FlagSet, name string, dst *T) {
	f := fs.Lookup(name)
	if f == nil || !f.Changed {
		return
	}

	var v any
	var err error

	switch any(*dst).(type) {
	case string:
		v, err = fs.GetString(name)
	case int:
		v, err = fs.GetInt(name)
	case int64:
		v, err = fs.GetInt64(name)
	case float64:
		v, err = fs.GetFloat64(name)
	case bool:
		v, err = fs.GetBool(name)
	default:
		return
	}

	if err == nil {
		*dst = v.(T)
	}
}

// serveMetrics exposes the registry until ctx is done. It is a no-op when no
// address is configured.
func (a *app) serveMetrics(ctx context.Context) func() {
	if a.cfg.Metrics.Addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.ErrorContext(ctx, "metrics server failed", "addr", srv.Addr, "error", err)
		}
	}()

	a.logger.InfoContext(ctx, "serving metrics", "addr", srv.Addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
