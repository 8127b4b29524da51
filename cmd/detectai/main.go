package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"detectai/internal/aidetect"
	"detectai/internal/config"
	"detectai/internal/logarchive"
	"detectai/internal/web"
	"detectai/internal/workspace"
)

func main() {
	configPath := flag.String("config", "", "settings file (default $DETECTAI_CONFIG or the workspace settings.yaml)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] [serve | analyze [-workers n] [-seed n] files...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	root, err := workspace.DefaultRoot()
	if err != nil {
		log.Fatalf("workspace initialization failed: %v", err)
	}
	settings, err := prepareWorkspace(*configPath, root)
	if err != nil {
		log.Fatalf("workspace initialization failed: %v", err)
	}

	cfg, err := config.Load(settings)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		logs, err := logarchive.New(workspace.LogsDir(root), os.Stderr)
		if err != nil {
			log.Fatalf("log archive error: %v", err)
		}
		if err := serve(cfg, logs); err != nil {
			log.Fatalf("server error: %v", err)
		}
	case "analyze":
		logs, err := logarchive.New(workspace.LogsDir(root), nil)
		if err != nil {
			log.Fatalf("log archive error: %v", err)
		}
		if err := runAnalyze(cfg, args, os.Stdin, os.Stdout, logs); err != nil {
			log.Fatalf("analyze: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

// prepareWorkspace returns the settings file to load. An explicit path from
// the flag or DETECTAI_CONFIG wins, and then only the logs directory is
// created under root. Otherwise the full workspace is bootstrapped.
func prepareWorkspace(flagValue, root string) (string, error) {
	if p := explicitConfigPath(flagValue); p != "" {
		if err := workspace.EnsureLogs(root); err != nil {
			return "", err
		}
		return p, nil
	}
	if _, err := workspace.EnsureAt(root); err != nil {
		return "", err
	}
	return workspace.SettingsPath(root), nil
}

func explicitConfigPath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv("DETECTAI_CONFIG"))
}

func serve(cfg *config.Config, logs *logarchive.Archive) error {
	src := aidetect.NewLockedSource(aidetect.NewSeededSource(cfg.Scorer.Seed))
	scorer := aidetect.NewScorer(cfg.Detector(), src, logs)
	handler := web.NewRouter(scorer, logs, web.Options{
		Delay:          cfg.UI.Delay,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout + cfg.UI.Delay,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Log("INFO", "BOOT", "server listening", "addr="+cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	logs.Log("INFO", "BOOT", "shutting down server", "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
