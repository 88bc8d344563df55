package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/atinyakov/QuoteKeeper/internal/client/connectivity"
	"github.com/atinyakov/QuoteKeeper/internal/client/gateway"
	"github.com/atinyakov/QuoteKeeper/internal/client/store"
	"github.com/atinyakov/QuoteKeeper/internal/client/syncer"
	"github.com/atinyakov/QuoteKeeper/internal/config"
	"github.com/atinyakov/QuoteKeeper/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	requestsPerSecond = 10
	requestBurst      = 20
)

var (
	opts = config.DefaultClientOptions()
	cur  *app
)

// app is everything a command needs, built once per invocation.
type app struct {
	log     *zap.Logger
	store   *store.Store
	remote  *gateway.Client
	engine  *syncer.Engine
	monitor *connectivity.Monitor
}

var rootCmd = &cobra.Command{
	Use:   "quotekeeper",
	Short: "Offline-first quote notebook",
	Long: `QuoteKeeper keeps your quotes in a local store and mirrors them to the server.
Notes written while offline are kept as pending and pushed once the server is reachable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		if err := opts.Resolve(); err != nil {
			return err
		}
		a, err := newApp(opts)
		if err != nil {
			return err
		}
		cur = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cur != nil {
			cur.close()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&opts.BaseURL, "url", opts.BaseURL, "API base URL")
	f.StringVar(&opts.StorePath, "store", opts.StorePath, "path to the local SQLite store")
	f.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")
	f.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "timeout for each request to the server")
	f.StringVar(&opts.Config, "config", opts.Config, "path to a JSON config file")
}

func newApp(o config.ClientOptions) (*app, error) {
	l := logger.New()
	if err := l.Init(o.LogLevel); err != nil {
		return nil, err
	}

	st, err := store.Open(o.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	httpClient := &http.Client{Timeout: o.Timeout}
	remote := gateway.New(httpClient, o.BaseURL, gateway.WithRateLimit(requestsPerSecond, requestBurst))

	a := &app{log: l.Log, store: st, remote: remote}
	a.engine = syncer.New(st, remote, syncer.ConnectivityFunc(func() bool { return a.monitor.Online() }), l.Log)
	a.monitor = connectivity.New(
		connectivity.HTTPProber{Client: httpClient, URL: remote.HealthURL()},
		a.engine,
		l.Log,
		connectivity.WithIntervals(o.ProbeInterval, o.PendingInterval),
	)
	return a, nil
}

// connect probes the server once. Coming online replays pending notes.
func (a *app) connect(ctx context.Context) {
	a.monitor.Check(ctx)
	a.monitor.Refresh(ctx)
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}
