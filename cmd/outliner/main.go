// Command outliner converts documents into JSON outlines.
//
//	outliner              convert INPUT_DIR/*.pdf into OUTPUT_DIR/<name>.json
//	outliner show FILE    print the outline of FILE as a tree
//	outliner mcp          serve the extract_outline tool over stdio
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/docoutline/internal/batch"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/mcptool"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/render"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	logOut := stdout
	if len(args) > 0 {
		// stdout carries the tree or the MCP stream.
		logOut = stderr
	}
	log := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err != nil {
		log.Error("load configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := parser.Options{PreferBookmarks: cfg.PreferBookmarks, Log: log}

	if len(args) == 0 {
		return runBatch(ctx, cfg, log)
	}
	switch args[0] {
	case "show":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "usage: outliner show FILE")
			return 2
		}
		res, err := batch.ExtractFile(args[1], opts)
		if err != nil {
			log.Error("extract failed", "file", args[1], "error", err)
			return 1
		}
		if err := render.Terminal(stdout, res); err != nil {
			log.Error("render failed", "error", err)
			return 1
		}
		return 0
	case "mcp":
		srv := mcptool.NewServer(version, opts, log)
		log.Info("serving mcp over stdio")
		if err := mcptool.ServeStdio(ctx, srv); err != nil && ctx.Err() == nil {
			log.Error("mcp server", "error", err)
			return 1
		}
		return 0
	case "version":
		fmt.Fprintln(stdout, version)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\nusage: outliner [show FILE | mcp | version]\n", args[0])
	return 2
}

func runBatch(ctx context.Context, cfg config.Config, log *slog.Logger) int {
	if err := cfg.ValidateBatch(); err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}
	sum, err := batch.New(cfg, log).Run(ctx)
	if err != nil {
		log.Error("batch failed", "error", err)
		return 1
	}
	if sum.Failed > 0 {
		return 1
	}
	return 0
}
