package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/gymtrack/internal/app"
	"github.com/claude/gymtrack/internal/catalog"
	"github.com/claude/gymtrack/internal/config"
	"github.com/claude/gymtrack/internal/localstore"
	gymmcp "github.com/claude/gymtrack/internal/mcp"
	"github.com/claude/gymtrack/internal/remote"
	"github.com/claude/gymtrack/internal/syncqueue"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (missing file uses defaults)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gymtrack-mcp", Version)
		return
	}

	// Stdout carries the MCP protocol; everything else goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := localstore.Open(cfg.Client.DataDir, log)
	if err != nil {
		log.Error("failed to open local store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cat, err := catalog.LoadEmbedded()
	if err != nil {
		log.Error("failed to load equipment catalog", "error", err)
		os.Exit(1)
	}

	rc := remote.New(cfg.Client.ServerURL, store, log)
	notify := syncqueue.NotifierFunc(func(msg string) {
		log.Warn("sync notice", "message", msg)
	})
	a := app.New(store, rc, cat, notify, log)

	// Long-running process: retry queued mutations in the background so a
	// reconnect does not wait for the next tool call.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Queue().Run(ctx, syncqueue.DrainInterval)

	srv := gymmcp.New(a, Version, log)
	if err := server.ServeStdio(srv); err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
