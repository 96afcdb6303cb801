package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/membergate/membergate/internal/cache"
	"github.com/membergate/membergate/internal/config"
	"github.com/membergate/membergate/internal/ratelimit"
	"github.com/membergate/membergate/internal/server"
	"github.com/membergate/membergate/internal/service"
	"github.com/membergate/membergate/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the membergate server",
		Long:  "Start the HTTP server that serves the member API, the admin API, and the site pages.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store opened")

	var c cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		c = rc
		logger.Info("redis cache connected")
	} else {
		c = cache.NewMemory()
		logger.Info("in-memory cache initialized")
	}

	authSvc := service.NewAuthService(st, cfg.JWTSecret)
	limiter := ratelimit.New()

	srvCfg := server.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     cfg.CORSOrigins,
		SecureCookies:   cfg.IsProduction(),
	}
	srv := server.New(srvCfg, st, authSvc, limiter, c, logger)

	// A site with no admin is unreachable through the admin UI.
	if n, err := st.CountAdmins(context.Background()); err == nil && n == 0 {
		logger.Warn("no admin account found - run: membergate admin create")
	}

	fmt.Printf("→ Membergate (%s)\n", cfg.Env)
	fmt.Printf("→ Listening on http://%s:%d\n", cfg.Host, cfg.Port)
	fmt.Printf("→ Admin:      http://%s:%d/admin\n", cfg.Host, cfg.Port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", cfg.Host, cfg.Port)
	fmt.Println()

	return srv.ListenAndServe()
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
