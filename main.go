// neko - streaming chat client with vision promotion and reply hygiene.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/killerppo/N.E.K.O/internal/cli"
	"github.com/killerppo/N.E.K.O/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default ~/.neko/config.toml)")
		model       = flag.String("model", "", "override the configured model")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("neko %s (%s)\n", Version, GitCommit)
		return
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "neko: %v\n", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.Endpoint.Model = *model
	}

	watchPath := *configPath
	if watchPath == "" {
		if p, pathErr := config.ConfigPath(); pathErr == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				watchPath = p
			}
		}
	}

	// SIGINT is owned by the chat loop for response interruption, so the
	// root context is not bound to it.
	err = cli.RunChat(context.Background(), cli.ChatOptions{
		Config:     cfg,
		ConfigPath: watchPath,
		Logger:     logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "neko: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}
