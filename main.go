// docchat - a terminal client for a local document assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/actions"
	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/cache"
	"github.com/jeranaias/docchat-tui/internal/cli"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/stream"
	"github.com/jeranaias/docchat-tui/internal/ui/chat"
	"github.com/jeranaias/docchat-tui/internal/ui/components"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Global program reference so stream goroutines can push messages into the
// running UI.
var (
	programRef *tea.Program
	programMu  sync.Mutex
)

func main() {
	var (
		plain       = flag.Bool("plain", false, "run the line-based REPL instead of the full-screen UI")
		configPath  = flag.String("config", "", "path to a config file (default: ~/.docchat/config.toml)")
		serverURL   = flag.String("server", "", "override the backend server URL")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("docchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.Server.BaseURL = *serverURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "docchat: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, logClose := newLogger()
	defer logClose()

	client := api.NewClient(&api.ClientConfig{
		BaseURL:    cfg.Server.BaseURL,
		Timeout:    time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Server.MaxRetries,
	})
	st := store.New()
	previewer := actions.NewPreviewer(client, openPreviewCache(cfg, logger), logger)
	seedUseDocsDefault(cfg, client, logger)

	if *plain || !cli.IsTTY() {
		runPlain(cfg, client, st, previewer, logger)
		return
	}
	runTUI(cfg, *configPath, client, st, logger)
}

// loadConfig loads from an explicit path, or from the default locations.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// newLogger opens the diagnostic log in the config directory. Diagnostics
// never go to the terminal; the UI owns the screen.
func newLogger() (*log.Logger, func()) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, func() {}
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "docchat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, func() {}
	}
	return log.New(f, "", log.LstdFlags), func() { f.Close() }
}

// openPreviewCache opens the sqlite preview cache, or returns nil when
// disabled or unavailable. Previews still work without it, just uncached.
func openPreviewCache(cfg *config.Config, logger *log.Logger) *cache.PreviewCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	path := cfg.Cache.Path
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil
		}
		path = filepath.Join(dir, "previews.db")
	}
	c, err := cache.Open(path, cfg.Cache.MaxEntries)
	if err != nil {
		if logger != nil {
			logger.Printf("preview cache unavailable at %s: %v", path, err)
		}
		return nil
	}
	return c
}

// seedUseDocsDefault overlays the server-side Use Documents default onto the
// local config. The local value stands when the server is unreachable.
func seedUseDocsDefault(cfg *config.Config, client *api.Client, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	settings, err := client.GetSettings(ctx)
	if err != nil {
		if logger != nil {
			logger.Printf("settings fetch failed, using local defaults: %v", err)
		}
		return
	}
	cfg.Chat.UseDocsDefault = settings.UseDocsDefault
}

// =============================================================================
// FULL-SCREEN MODE
// =============================================================================

func runTUI(cfg *config.Config, configPath string, client *api.Client, st *store.Store, logger *log.Logger) {
	toasts := components.NewToastManager()

	sendNotice := func(n notify.Notice) {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(chat.NoticeMsg{Notice: n})
		}
	}
	sendUpdate := func(conversationID string) {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(chat.StreamUpdateMsg{ConversationID: conversationID})
		}
	}

	coordinator := actions.NewCoordinator(client, st, sendNotice, logger)
	manager := stream.NewManager(stream.Config{
		Backend:          client,
		Store:            st,
		StreamingEnabled: cfg.Chat.StreamingEnabled,
		Notify:           sendNotice,
		OnUpdate:         sendUpdate,
		Logger:           logger,
	})

	model := chat.New(chat.Deps{
		Config:      cfg,
		Store:       st,
		Coordinator: coordinator,
		Manager:     manager,
		Toasts:      toasts,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Reload the config file on change while the UI runs.
	if watcher := watchConfig(configPath, logger); watcher != nil {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
}

// watchConfig pushes config reloads into the running program.
func watchConfig(configPath string, logger *log.Logger) *config.Watcher {
	path := configPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	watcher, err := config.WatchFile(path, 500*time.Millisecond, func(next *config.Config) {
		programMu.Lock()
		p := programRef
		programMu.Unlock()
		if p != nil {
			p.Send(chat.ConfigReloadedMsg{Config: next})
		}
	}, logger)
	if err != nil {
		if logger != nil {
			logger.Printf("config watch unavailable: %v", err)
		}
		return nil
	}
	return watcher
}

// =============================================================================
// PLAIN MODE
// =============================================================================

func runPlain(cfg *config.Config, client *api.Client, st *store.Store, previewer *actions.Previewer, logger *log.Logger) {
	var repl *cli.Repl

	notice := func(n notify.Notice) {
		if repl != nil {
			repl.OnNotice(n)
		}
	}
	update := func(conversationID string) {
		if repl != nil {
			repl.OnStreamUpdate(conversationID)
		}
	}

	coordinator := actions.NewCoordinator(client, st, notice, logger)
	manager := stream.NewManager(stream.Config{
		Backend:          client,
		Store:            st,
		StreamingEnabled: cfg.Chat.StreamingEnabled,
		Notify:           notice,
		OnUpdate:         update,
		Logger:           logger,
	})

	repl = cli.NewRepl(cli.Deps{
		Config:      cfg,
		Store:       st,
		Coordinator: coordinator,
		Manager:     manager,
		Previewer:   previewer,
	})

	if err := repl.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "docchat: %v\n", err)
		os.Exit(1)
	}
}
