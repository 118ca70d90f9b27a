// ABOUTME: Root Cobra command and global flags for the sociality CLI.
// ABOUTME: Lifecycle hooks load config, build the logger, open the session, and enforce the auth guard.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/sociality/internal/api"
	"github.com/2389-research/sociality/internal/auth"
	"github.com/2389-research/sociality/internal/config"
	"github.com/2389-research/sociality/internal/logging"
	"github.com/2389-research/sociality/internal/session"
	"github.com/2389-research/sociality/internal/storage"
)

// Command annotations read by the root hooks.
const (
	annotationAuth        = "auth"
	annotationInteractive = "interactive"
)

// requiresAuth marks a command as needing a stored session.
var requiresAuth = map[string]string{annotationAuth: "required"}

// interactiveAuthed marks a full-screen command that needs a session.
var interactiveAuthed = map[string]string{annotationAuth: "required", annotationInteractive: "true"}

var (
	globalConfig  *config.Config
	globalLogger  = zap.NewNop()
	globalStore   *storage.FileKV
	globalSession *session.Session
	globalClient  *api.Client
	globalAuth    *auth.Service
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sociality",
	Short: "Sociality from the terminal, for humans and agents",
	Long: `
███████╗ ██████╗  ██████╗██╗ █████╗ ██╗     ██╗████████╗██╗   ██╗
██╔════╝██╔═══██╗██╔════╝██║██╔══██╗██║     ██║╚══██╔══╝╚██╗ ██╔╝
███████╗██║   ██║██║     ██║███████║██║     ██║   ██║    ╚████╔╝
╚════██║██║   ██║██║     ██║██╔══██║██║     ██║   ██║     ╚██╔╝
███████║╚██████╔╝╚██████╗██║██║  ██║███████╗██║   ██║      ██║
╚══════╝ ╚═════╝  ╚═════╝╚═╝╚═╝  ╚═╝╚══════╝╚═╝   ╚═╝      ╚═╝

Browse your feed, like, save, comment, and follow people on Sociality.
The session is shared by the CLI, the browser TUI, and the MCP server.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		logFile, err := cfg.GetLogFile()
		if err != nil {
			return fmt.Errorf("failed to resolve log file: %w", err)
		}
		logger, err := logging.New(logging.Options{
			Level:   cfg.Log.Level,
			File:    logFile,
			Verbose: verbose,
			Quiet:   cmd.Annotations[annotationInteractive] == "true",
		})
		if err != nil {
			return err
		}
		globalLogger = logger

		sessionDir, err := cfg.GetSessionDir()
		if err != nil {
			return fmt.Errorf("failed to resolve session dir: %w", err)
		}
		store, err := storage.NewFileKV(sessionDir)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		globalStore = store
		globalSession = session.Open(store, logger.Named("session"))

		globalClient = api.NewClient(cfg.API.URL, globalSession,
			api.WithLogger(logger.Named("api")),
			api.WithTimeout(cfg.API.Timeout),
			api.WithBreaker(cfg.API.Breaker),
		)
		globalAuth = auth.NewService(globalClient, globalSession, logger.Named("auth"))

		logger.Debug("initialized",
			zap.String("command", cmd.CommandPath()),
			zap.String("api", globalClient.BaseURL()),
			zap.String("session_dir", sessionDir))

		if cmd.Annotations[annotationAuth] == "required" {
			return globalAuth.Guard().Require()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		_ = globalLogger.Sync()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// pageSize returns the configured list page size.
func pageSize() int {
	if globalConfig != nil && globalConfig.API.PageSize > 0 {
		return globalConfig.API.PageSize
	}
	return config.DefaultPageSize
}
