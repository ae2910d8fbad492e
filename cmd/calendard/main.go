package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webcal/internal/config"
	appLog "webcal/internal/log"
	"webcal/internal/store"
	"webcal/internal/web"
)

type flagConfig struct {
	configPath string
	port       int
	store      string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	// Flags win over file and environment.
	if flags.port > 0 {
		conf.Port = flags.port
	}
	if flags.store != "" {
		conf.Store = flags.store
	}
	conf.Normalize()
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("calendard starting",
		"listen", conf.Listen(),
		"store", conf.Store,
		"database", conf.Database,
		"collection", conf.Collection,
		"week_start", conf.WeekStart,
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, store.Options{
		Backend:    conf.Store,
		URI:        conf.MongoURI,
		Database:   conf.Database,
		Collection: conf.Collection,
	})
	if err != nil {
		appLog.Error("failed to open store", err, "store", conf.Store)
		os.Exit(1)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := st.Close(closeCtx); err != nil {
			appLog.Error("failed to close store", err)
		}
	}()

	if err := web.StartServer(ctx, conf, st); err != nil {
		appLog.Error("http server failed", err)
		return
	}
	appLog.Info("calendard exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", envOr("CALENDAR_CONFIG", ""), "Path to YAML config file (empty: defaults + environment)")
	flag.IntVar(&cfg.port, "port", 0, "HTTP port (overrides config and PORT if set)")
	flag.StringVar(&cfg.store, "store", "", "Store backend: mongo or memory (overrides config if set)")

	flag.Parse()

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
