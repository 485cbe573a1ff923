// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/server"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr, provider, modelName string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the streaming generation endpoint",
		Long: `serve exposes POST /api/chat, which streams assistant replies as
newline-delimited JSON frames, plus /health and /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if provider != "" {
				cfg.Generation.Provider = provider
			}
			if modelName != "" {
				cfg.Generation.Model = modelName
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			backend, err := server.NewLangChainBackend(server.BackendConfig{
				Provider: server.Provider(cfg.Generation.Provider),
				Model:    cfg.Generation.Model,
				BaseURL:  cfg.Generation.BaseURL,
				APIKey:   cfg.Generation.APIKey,
			})
			if err != nil {
				return err
			}

			srv := server.New(serverConfig(cfg), backend, server.WithLogger(opts.logger))

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.logger.Info().
				Str("provider", cfg.Generation.Provider).
				Str("model", cfg.Generation.Model).
				Msg("starting generation server")
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: openai, ollama")
	cmd.Flags().StringVar(&modelName, "model", "", "model name")
	return cmd
}

// serverConfig maps the [server] and [generation] sections onto server.Config.
func serverConfig(cfg *config.Config) server.Config {
	out := server.DefaultConfig()
	out.Addr = cfg.Server.Addr
	out.StreamTimeout = time.Duration(cfg.Server.StreamTimeoutSecs) * time.Second
	out.SystemPrompt = cfg.Generation.SystemPrompt
	out.RateLimit = cfg.Server.RateLimit
	out.RateBurst = cfg.Server.RateBurst
	out.CORSOrigins = cfg.Server.CORSOrigins
	if cfg.Server.MaxBodyBytes > 0 {
		out.MaxBodyBytes = cfg.Server.MaxBodyBytes
	}
	return out
}
