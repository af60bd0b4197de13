package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gyaneshwarpardhi/s3notify/internal/api"
	"github.com/gyaneshwarpardhi/s3notify/internal/config"
	"github.com/gyaneshwarpardhi/s3notify/internal/dispatcher"
	"github.com/gyaneshwarpardhi/s3notify/internal/event"
	"github.com/gyaneshwarpardhi/s3notify/internal/logging"
	"github.com/gyaneshwarpardhi/s3notify/internal/rule"
	"github.com/gyaneshwarpardhi/s3notify/internal/sink/builtin"
	"github.com/gyaneshwarpardhi/s3notify/internal/source/fswatch"
)

func main() {
	cfgPath := flag.String("config", "", "Path to s3.json / YAML config (default $S3_CONFIG or ./s3.json)")
	addr := flag.String("addr", "", "HTTP listen address (default hostname:port from config)")
	noWatch := flag.Bool("no-watch", false, "Disable the filesystem bucket source")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	path := config.ResolvePath(*cfgPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Silent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("path", path), zap.Int("buckets", len(cfg.Buckets)))

	// ── Rules ─────────────────────────────────────────────────────────────────
	rules, err := rule.Build(cfg, builtin.Registry(), logger)
	if err != nil {
		logger.Error("failed to build rules", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("rules built", zap.Int("rules", rules.Len()))

	// ── Dispatcher ────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disp := dispatcher.New(rules, cfg.Dispatcher, logger)
	events := make(chan *event.Event, cfg.Dispatcher.EventBuffer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		disp.Run(ctx, events)
	}()

	// ── Bucket source ─────────────────────────────────────────────────────────
	if !*noWatch {
		names := make([]string, 0, len(cfg.Buckets))
		for _, b := range cfg.Buckets {
			names = append(names, b.Name)
		}
		watcher := fswatch.New(cfg.Directory, names, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx, events); err != nil {
				logger.Error("bucket watcher stopped", zap.Error(err))
			}
		}()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	listen := *addr
	if listen == "" {
		listen = net.JoinHostPort(cfg.Hostname, strconv.Itoa(cfg.Port))
	}
	srv := &http.Server{
		Addr:         listen,
		Handler:      api.New(disp, events, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop sources and the dispatch loop
	wg.Wait()
	if err := disp.Shutdown(shutCtx); err != nil {
		logger.Warn("dispatcher shutdown", zap.Error(err))
	}
	logger.Info("goodbye")
}
