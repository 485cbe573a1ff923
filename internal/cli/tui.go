// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/chat"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/viewmodel"
)

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the messenger screen (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

// runTUI starts the full-screen messenger.
func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	if err := requireTTY(); err != nil {
		return err
	}

	// Console logging would draw over the alt screen.
	logger := opts.logger
	if opts.cfg.Log.File == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		f, err := logging.OpenFile(filepath.Join(dir, "rigchat.log"))
		if err != nil {
			return err
		}
		defer f.Close()
		logger = logging.Setup(opts.cfg.Log, f)
	}

	a, err := openApp(opts.cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(contextOrBackground(cmd))
	defer cancel()

	if fs, ok := a.store.(*storage.FileStore); ok {
		if err := fs.Watch(ctx, a.adapter.Key(), a.cache.Invalidate); err != nil {
			logger.Warn().Err(err).Msg("storage watch disabled")
		}
	}

	vm := viewmodel.New(a.cache,
		viewmodel.WithTyping(a.replier),
		viewmodel.WithFocus(a.focus),
		viewmodel.WithLogger(logger),
	)
	m := chat.New(ctx, chat.Config{
		Cache:   a.cache,
		View:    vm,
		Replier: a.replier,
		Theme:   styles.NewTheme(),
		Logger:  logger,
	})
	defer m.Close()

	if err := a.client.CheckHealth(ctx); err != nil {
		logger.Warn().Err(err).Str("endpoint", a.client.Endpoint()).Msg("generation endpoint unavailable")
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
