package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/voyagen/streamvault/internal/config"
	"github.com/voyagen/streamvault/internal/epg"
	"github.com/voyagen/streamvault/internal/playlist"
	"github.com/voyagen/streamvault/internal/scheduler"
	"github.com/voyagen/streamvault/internal/server"
	"github.com/voyagen/streamvault/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env REDIS_URL")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := store.Open(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	sched := scheduler.New(
		st,
		playlist.NewParser(cfg.StaticDir, ""),
		epg.NewParser(httpClient, cfg.UserAgent),
		httpClient,
		cfg.UserAgent,
	)
	if err := sched.ReloadAll(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(st, cfg, sched)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}
