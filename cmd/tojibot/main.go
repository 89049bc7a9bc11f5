package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/config"
	"github.com/ent0n29/tojibot/internal/logging"
)

// cli carries state shared by every subcommand once the root pre-run has
// loaded the environment.
type cli struct {
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tojibot: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var logLevel string

	root := &cobra.Command{
		Use:   "tojibot",
		Short: "In-character chat bot backed by a character fact store and an LLM",
		Long: `tojibot answers chat messages as a fixed persona. Each reply is built from
facts retrieved from the character store, the user's conversation history and
the message itself, then completed by the configured LLM provider.

Configuration is read from the environment (see DATABASE_URL, LLM_PROVIDER,
GROQ_API_KEY, MEMORY_DRIVER and friends).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(c),
		newFactsCmd(c),
		newCheckCmd(c),
		newPerfCmd(),
	)
	return root
}
