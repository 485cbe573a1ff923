// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	driver     string
	dataPath   string
	endpoint   string
	verbose    bool

	cfg    *config.Config
	logger zerolog.Logger
	logOut io.Closer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Terminal messenger with streaming AI conversations",
		Long: `rigchat keeps a list of conversations, some of them with an AI assistant,
and streams assistant replies from a generation endpoint (see "rigchat serve").`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logOut != nil {
				opts.logOut.Close()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (default is $HOME/.rigchat/config.toml)")
	pf.StringVar(&opts.driver, "driver", "", "storage driver: file, sqlite, pebble, memory")
	pf.StringVar(&opts.dataPath, "data", "", "storage path (directory or database file)")
	pf.StringVar(&opts.endpoint, "endpoint", "", "generation endpoint URL")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newTUICmd(opts),
		newChatCmd(opts),
		newServeCmd(opts),
		newListCmd(opts),
		newSearchCmd(opts),
		newShowCmd(opts),
		newSendCmd(opts),
		newReadCmd(opts),
		newExportCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, applies flag overrides and sets up logging.
func (o *globalOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.driver != "" {
		cfg.Storage.Driver = o.driver
	}
	if o.dataPath != "" {
		cfg.Storage.Path = o.dataPath
	}
	if o.endpoint != "" {
		cfg.Client.Endpoint = o.endpoint
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	o.cfg = cfg

	var w io.Writer = cmd.ErrOrStderr()
	if cfg.Log.File != "" {
		f, err := logging.OpenFile(cfg.Log.File)
		if err != nil {
			return err
		}
		o.logOut = f
		w = f
	}
	o.logger = logging.Setup(cfg.Log, w)
	return nil
}

// contextOrBackground returns the command context if cobra set one.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
