package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/gridstate"
	"pkt.systems/gridstate/core"
	"pkt.systems/gridstate/httpapi"
	"pkt.systems/gridstate/internal/appconfig"
	"pkt.systems/gridstate/internal/settings"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var disableAuditTrails bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gridstate HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			port, closeStorage, err := appconfig.OpenStorage(cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStorage(); err != nil {
					logger.Warn("storage close failed", "err", err)
				}
			}()
			logger.Info("storage backend selected", "backend", cfg.Storage.Backend, "dir", cfg.Storage.Dir, "sqlite_path", cfg.Storage.SQLitePath)

			serverCfg := gridstate.ServerConfig{
				Engine:             cfg.Engine.Schema(),
				HTTP:               toHTTPConfig(cfg.HTTP),
				HubHistory:         cfg.HTTP.HistorySize,
				DisableAuditTrails: cfg.Logging.DisableAuditTrails,
			}
			server, err := gridstate.New(serverCfg, gridstate.ServerDeps{
				ServiceDeps: core.ServiceDeps{
					Store:  settings.NewStore(port),
					Logger: logger,
				},
			}, gridstate.WithHTTP())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "override http.addr")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit logging of view changes")
	return cmd
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	return httpapi.Config{
		Addr:        cfg.Addr,
		BasePath:    cfg.BasePath,
		UserHeader:  cfg.UserHeader,
		HistorySize: cfg.HistorySize,
	}
}
