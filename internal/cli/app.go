package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/stowage/internal/config"
	"github.com/roach88/stowage/internal/logging"
	"github.com/roach88/stowage/internal/metrics"
	"github.com/roach88/stowage/internal/realm"
	"github.com/roach88/stowage/internal/schema"
	"github.com/roach88/stowage/internal/store"
)

// app is everything one command invocation needs, wired from config.
type app struct {
	store   *store.Store
	realm   *realm.Coordinator
	entries realm.Collection[Entry]
	log     logging.Logger
}

// openApp loads config, opens the database and starts the coordinator.
// The caller must Close the result.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, ErrCode: ErrCodeConfig, Message: "invalid config", Err: err}
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logW := opts.LogWriter
	if logW == nil {
		logW = cmd.ErrOrStderr()
	}
	log, err := logging.New(logW, cfg.Log.Format, level)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, ErrCode: ErrCodeConfig, Message: "invalid log config", Err: err}
	}

	var m *metrics.Collector
	if cfg.Metrics.Enabled {
		reg := opts.Registerer
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		if m, err = metrics.New(reg, cfg.Metrics.Namespace); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to register metrics", err)
		}
	}

	log.Debug("opening database", logging.String("path", cfg.Database))
	st, err := store.Open(cfg.Database, store.WithMaxConns(cfg.MaxConns))
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, ErrCode: ErrCodeOpen, Message: "failed to open database", Err: err}
	}

	reg := schema.NewRegistry()
	if _, err := schema.Register[Entry](reg); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to register entry type", err)
	}

	ropts := []realm.Option{realm.WithLogger(log), realm.WithMetrics(m)}
	if opts.IDs != nil {
		ropts = append(ropts, realm.WithIDGenerator(opts.IDs))
	}
	c := realm.New(st, reg, ropts...)

	return &app{store: st, realm: c, entries: realm.For[Entry](c), log: log}, nil
}

// loadConfig reads --config if given, else defaults, then applies --db.
func loadConfig(opts *RootOptions) (config.Config, error) {
	var cfg config.Config
	var err error
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.Default()
	}
	if err != nil {
		return config.Config{}, err
	}

	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, nil
}

// Close stops the coordinator and closes the database.
func (a *app) Close() error {
	if err := a.realm.Close(); err != nil {
		return err
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withApp opens the app, runs fn, and closes the app, reporting any error
// through the formatter.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(a *app, out *OutputFormatter) error) error {
	out := formatter(opts, cmd)

	a, err := openApp(opts, cmd)
	if err != nil {
		return out.Fail(err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.log.Error("error closing", logging.Err(closeErr))
		}
	}()

	if err := fn(a, out); err != nil {
		return out.Fail(err)
	}
	return nil
}
