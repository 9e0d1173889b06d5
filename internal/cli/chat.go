// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/killerppo/N.E.K.O/internal/chat"
	"github.com/killerppo/N.E.K.O/internal/config"
	"github.com/killerppo/N.E.K.O/internal/endpoint"
)

// historyFileName is the input history file inside the config directory.
const historyFileName = "history"

// ChatOptions configures the interactive chat loop.
type ChatOptions struct {
	// Config is the loaded application configuration.
	Config *config.Config

	// ConfigPath, when non-empty, is watched for changes. A change
	// prints a notice; the running session keeps its current config.
	ConfigPath string

	// Logger receives diagnostics.
	Logger *slog.Logger
}

// RunChat runs the interactive chat loop until the user quits or the
// context is cancelled.
func RunChat(ctx context.Context, opts ChatOptions) error {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	session := newSession(cfg, logger)
	session.Connect(cfg.Chat.SystemInstructions)
	defer session.Close()

	// Ctrl-C during a streaming reply interrupts it; the prompt handles
	// its own Ctrl-C through liner.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			session.HandleInterruption()
		}
	}()

	if opts.ConfigPath != "" {
		go watchConfig(ctx, opts.ConfigPath, logger)
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	loadInputHistory(line, logger)
	defer saveInputHistory(line, logger)

	fmt.Printf("neko chat (model: %s). Type /help for commands.\n", session.ActiveModel())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		input, err := line.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := runCommand(session, cfg, input); quit {
				return nil
			}
			continue
		}

		session.StreamText(ctx, input)
	}
}

// newSession builds a chat session from the application config.
func newSession(cfg *config.Config, logger *slog.Logger) *chat.Session {
	primary := endpoint.Config{
		BaseURL:     cfg.Endpoint.BaseURL,
		APIKey:      cfg.Endpoint.APIKey,
		Model:       cfg.Endpoint.Model,
		Temperature: cfg.Endpoint.Temperature,
		Stream:      true,
	}

	var rewrite *chat.RewriteConfig
	if cfg.Rewrite.Enabled {
		rewrite = &chat.RewriteConfig{
			Model:   cfg.Rewrite.Model,
			BaseURL: firstNonEmpty(cfg.Rewrite.BaseURL, cfg.Endpoint.BaseURL),
			APIKey:  firstNonEmpty(cfg.Rewrite.APIKey, cfg.Endpoint.APIKey),
		}
	}

	return chat.NewSession(primary, chat.Options{
		Vision: endpoint.Config{
			Model:   cfg.Vision.Model,
			BaseURL: cfg.Vision.BaseURL,
			APIKey:  cfg.Vision.APIKey,
		},
		Rewrite:             rewrite,
		MaxResponseLength:   cfg.Rewrite.MaxResponseLength,
		RewriteTimeout:      time.Duration(cfg.Rewrite.TimeoutSecs) * time.Second,
		RepetitionThreshold: cfg.Chat.RepetitionThreshold,
		RequestsPerMinute:   cfg.Endpoint.RequestsPerMinute,
		Logger:              logger,
		Callbacks: chat.Callbacks{
			OnTextDelta: func(fragment string, isFirstChunk bool) {
				fmt.Print(fragment)
			},
			OnResponseDone: func() {
				fmt.Println()
			},
			OnConnectionError: func(message string) {
				fmt.Fprintf(os.Stderr, "! %s\n", message)
			},
			OnRepetitionDetected: func() {
				fmt.Fprintln(os.Stderr, "! repetitive replies detected, conversation was reset")
			},
			OnResponseRewritten: func(text string, originalLength, rewrittenLength int) {
				fmt.Fprintf(os.Stderr, "(reply condensed from %d to %d)\n", originalLength, rewrittenLength)
			},
		},
	})
}

// runCommand dispatches a slash command. It returns true when the loop
// should exit.
func runCommand(session *chat.Session, cfg *config.Config, input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true

	case "/clear":
		session.Close()
		session.Connect(cfg.Chat.SystemInstructions)
		fmt.Println("conversation cleared")

	case "/image":
		if arg == "" {
			fmt.Println("usage: /image <path>")
			break
		}
		if err := stageImage(session, arg); err != nil {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
			break
		}
		fmt.Printf("image staged (%s), it will be sent with your next message\n", filepath.Base(arg))

	case "/model":
		fmt.Printf("active model: %s", session.ActiveModel())
		if session.Promoted() {
			fmt.Print(" (vision)")
		}
		fmt.Println()

	case "/help":
		fmt.Println("commands:")
		fmt.Println("  /image <path>  stage an image for the next message")
		fmt.Println("  /model         show the active model")
		fmt.Println("  /clear         reset the conversation")
		fmt.Println("  /quit          exit")

	default:
		fmt.Printf("unknown command: %s (try /help)\n", cmd)
	}
	return false
}

// stageImage reads an image file and queues it for the next user turn.
func stageImage(session *chat.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	session.EnqueueImage(base64.StdEncoding.EncodeToString(data))
	return nil
}

// watchConfig prints a notice when the config file changes. The running
// session keeps its config; changes apply on restart.
func watchConfig(ctx context.Context, path string, logger *slog.Logger) {
	err := config.Watch(ctx, path, logger, func() {
		fmt.Fprintln(os.Stderr, "(config file changed, restart to apply)")
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("config watch stopped", "error", err)
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func historyPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyFileName), nil
}

func loadInputHistory(line *liner.State, logger *slog.Logger) {
	path, err := historyPath()
	if err != nil {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		logger.Debug("failed to read input history", "error", err)
	}
}

func saveInputHistory(line *liner.State, logger *slog.Logger) {
	if err := config.EnsureConfigDir(); err != nil {
		logger.Debug("failed to create config directory", "error", err)
		return
	}
	path, err := historyPath()
	if err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		logger.Debug("failed to create input history file", "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		logger.Debug("failed to write input history", "error", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
