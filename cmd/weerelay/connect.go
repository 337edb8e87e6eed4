package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lcrown/weerelay/internal/config"
	"github.com/lcrown/weerelay/internal/logging"
	"github.com/lcrown/weerelay/internal/observability"
	"github.com/lcrown/weerelay/internal/session"
)

type connectOptions struct {
	ConfigPath  string
	Target      string
	Host        string
	Port        int
	Password    string
	TOTP        string
	WebSocket   bool
	TLS         bool
	NoReconnect bool
	MetricsAddr string
}

// resolveConfig layers the sources: TOML config or saved target first,
// command-line flags on top.
func resolveConfig(opts connectOptions) (session.Config, string, bool, error) {
	cfg := session.DefaultConfig()
	metricsAddr := ""
	reconnect := true

	switch {
	case opts.ConfigPath != "":
		fileCfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, "", false, err
		}
		cfg = config.SessionConfig(fileCfg)
		metricsAddr = fileCfg.Metrics.Addr
		reconnect = fileCfg.Reconnect.Enabled
	case opts.Target != "":
		path, err := targetsPath()
		if err != nil {
			return cfg, "", false, err
		}
		tf, err := loadTargets(path)
		if err != nil {
			return cfg, "", false, err
		}
		entry, ok := findTarget(tf, opts.Target)
		if !ok {
			return cfg, "", false, fmt.Errorf("no target named %s", opts.Target)
		}
		cfg.Host = entry.Host
		cfg.Port = entry.Port
		cfg.Password = entry.Password
		cfg.TLS.Enabled = entry.TLS
		cfg.WebSocket = entry.WebSocket
	}

	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("WEERELAY_PASSWORD")
	}
	if opts.TOTP != "" {
		cfg.TOTP = opts.TOTP
	}
	if opts.WebSocket {
		cfg.WebSocket = true
	}
	if opts.TLS {
		cfg.TLS.Enabled = true
	}
	if opts.NoReconnect {
		reconnect = false
	}
	if opts.MetricsAddr != "" {
		metricsAddr = opts.MetricsAddr
	}
	return cfg, metricsAddr, reconnect, cfg.Validate()
}

func runConnect(cmd *cobra.Command, opts connectOptions) error {
	logging.ConfigureRuntime()
	logger := observability.InitLogger("weerelay")

	cfg, metricsAddr, reconnect, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		observability.RegisterMetrics()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
		logger.Info().Str("addr", metricsAddr).Msg("serving metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(cfg, logger, cmd.OutOrStdout())
	return c.run(ctx, reconnect)
}
