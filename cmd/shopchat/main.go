// Package main implements the shopchat command line client.
//
// Running shopchat without arguments opens the interactive chat. Subcommands
// cover scripted use: send, history, clear, health and config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"shopchat/internal/config"
	"shopchat/internal/conversation"
	"shopchat/internal/logging"
	"shopchat/internal/storage"
	"shopchat/internal/transport"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.3.0"

// cliOptions holds the global flags.
type cliOptions struct {
	dataDir    string
	configPath string
	verbose    bool
	baseURL    string

	cfg    *config.Config
	logger *zap.Logger
}

func (o *cliOptions) resolvedConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.DefaultConfigPath(o.dataDir)
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:     "shopchat",
		Short:   "Terminal chat client for the shop support assistant",
		Version: version,
		Long: `shopchat talks to the shop's chat backend from the terminal.

The conversation is kept locally and survives restarts. Run without arguments
to start the interactive chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveChat(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", config.DefaultDataDir(), "Directory for config, conversation storage and logs")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default <data-dir>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "api-url", "", "Chat backend base URL (overrides config and environment)")

	rootCmd.AddCommand(
		newSendCmd(opts),
		newHistoryCmd(opts),
		newClearCmd(opts),
		newHealthCmd(opts),
		newConfigCmd(opts),
	)
	return rootCmd
}

// setup loads config and installs the logger. The interactive chat logs to a
// file so output never lands on the alternate screen.
func (o *cliOptions) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.resolvedConfigPath())
	if err != nil {
		return err
	}
	if o.baseURL != "" {
		cfg.Chat.BaseURL = o.baseURL
	}
	o.cfg = cfg

	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		DebugMode:  cfg.Logging.DebugMode,
		Categories: cfg.Logging.Categories,
	}
	if o.verbose {
		logCfg.Level = "debug"
		logCfg.DebugMode = true
	}
	if cmd.Root() == cmd {
		logCfg.File = config.ResolvePath(o.dataDir, cfg.Logging.File)
	}

	logger, err := logging.Initialize(logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.logger = logger
	logging.Get(logging.CategoryBoot).Debug("configuration loaded",
		zap.String("data_dir", o.dataDir),
		zap.String("base_url", cfg.Chat.BaseURL),
		zap.String("storage", cfg.Storage.Driver))
	return nil
}

// app bundles the components shared by every command.
type app struct {
	cfg     *config.Config
	backend storage.Storage
	store   *conversation.Store
	client  *transport.Client
}

// openApp validates the config, opens storage and rehydrates the conversation.
func openApp(ctx context.Context, o *cliOptions) (*app, error) {
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := openStorage(cfg, o.dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	store := conversation.NewStore(backend,
		conversation.WithKey(cfg.Storage.Key),
		conversation.WithConversationID(cfg.Chat.ConversationID))
	store.Load(ctx)

	client := transport.NewClient(transport.Config{
		BaseURL:   cfg.Chat.BaseURL,
		Timeout:   cfg.GetChatTimeout(),
		UserAgent: "shopchat/" + version,
	})

	return &app{cfg: cfg, backend: backend, store: store, client: client}, nil
}

func openStorage(cfg *config.Config, dataDir string) (storage.Storage, error) {
	driver := storage.Driver(cfg.Storage.Driver)
	path := config.ResolvePath(dataDir, cfg.Storage.Path)
	if driver == storage.DriverSQLite && filepath.Ext(path) == "" {
		path = filepath.Join(path, "shopchat.db")
	}
	return storage.New(driver,
		storage.WithPath(path),
		storage.WithRedisAddr(cfg.Storage.RedisAddr, cfg.Storage.RedisDB),
		storage.WithRedisTTL(cfg.GetRedisTTL()),
		storage.WithLogger(logging.Get(logging.CategoryStorage)))
}

func (a *app) Close() {
	a.client.CloseIdleConnections()
	if err := a.backend.Close(); err != nil {
		logging.Get(logging.CategoryStorage).Warn("failed to close storage", zap.Error(err))
	}
}

// signalContext cancels on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
