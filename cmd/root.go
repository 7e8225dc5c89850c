package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	app "github.com/okian/tftscrape/internal/app"
	"github.com/okian/tftscrape/internal/config"
	"github.com/okian/tftscrape/pkg/logger"
	"github.com/okian/tftscrape/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	configPath string
	svcOpts    []app.Option

	cfg        *config.Config
	svc        *app.Service
	log        logger.Logger
	metricsSrv *http.Server
}

func newRootCmd(svcOpts ...app.Option) *cobra.Command {
	c := &cli{svcOpts: svcOpts}

	root := &cobra.Command{
		Use:           "tftscrape",
		Short:         "tftscrape crawls TFT matches into a local cache and exports them as CSV tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "",
		"YAML config file (default $"+config.EnvConfigPath+", else ./"+config.DefaultPath+" when present)")

	root.AddCommand(
		newScrapeCmd(c),
		newExportCmd(c),
		newLoadCmd(c),
		newPurgeCmd(c),
	)
	return root
}

// setup loads configuration, initializes logging and metrics, and builds the
// service.
func (c *cli) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}

	cfg, err := config.Load(ctx, c.configPath)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		logger.Get().Error(ctx, "invalid log_format", logger.String("log_format", cfg.LogFormat), logger.Error(err))
		return err
	}
	c.log = logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	c.svc = app.New(cfg, append([]app.Option{app.WithLogger(c.log)}, c.svcOpts...)...)

	if cfg.Metrics.Addr != "" {
		if err := c.serveMetrics(ctx, cfg.Metrics.Addr); err != nil {
			c.log.Error(ctx, "failed to start metrics listener", logger.String("addr", cfg.Metrics.Addr), logger.Error(err))
			return err
		}
	}
	return nil
}

func (c *cli) serveMetrics(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	c.metricsSrv = &http.Server{
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		c.log.Info(ctx, "serving metrics", logger.String("addr", ln.Addr().String()))
		if err := c.metricsSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error(ctx, "metrics listener failed", logger.Error(err))
		}
	}()
	return nil
}

// teardown writes the metrics textfile and stops the listener.
func (c *cli) teardown(ctx context.Context) error {
	if c.metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.metricsSrv.Shutdown(shutdownCtx); err != nil {
			c.log.Warn(ctx, "metrics listener shutdown failed", logger.Error(err))
		}
	}
	if c.cfg != nil && c.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(c.cfg.Metrics.Textfile); err != nil {
			c.log.Error(ctx, "failed to write metrics textfile", logger.Error(err))
			return err
		}
	}
	return nil
}

// run executes fn and then tears down, whether fn failed or not.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	ctx := cmd.Context()
	err := fn(ctx)
	if terr := c.teardown(ctx); err == nil {
		err = terr
	}
	return err
}

// fail logs a command error and returns it so cobra exits non-zero.
func (c *cli) fail(ctx context.Context, msg string, err error) error {
	if c.log != nil {
		c.log.Error(ctx, msg, logger.Error(err))
	} else {
		_, _ = os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	}
	return err
}
