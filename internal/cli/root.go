package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"supportrag/config"
	"supportrag/internal/logger"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
	logJSON  bool
	log      logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "supportrag",
	Short: "Support reply engine - retrieve context, score confidence, learn from edits",
	Long: `supportrag drafts support-ticket replies from four knowledge sources:
the global hosting KB, each tenant's own KB, approved past replies and
corrected drafts. It scores how far a draft can be trusted and learns
from every human approval.

Example usage:
  supportrag ingest global ./kb                       # Index the hosting KB
  supportrag draft -t acme -s "SMTP" -c "Which port?"  # Prepare draft context
  supportrag approve -t acme --draft-file d.txt --final-file f.txt
  supportrag weights recommend -t acme                # Tune source weights`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if err := config.LoadEnv(rootDir); err != nil {
			return err
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-json") {
			cfg.Logging.JSON = logJSON
		}
		lc := logger.DefaultConfig()
		lc.Level = logger.ParseLevel(cfg.Logging.Level)
		lc.JSON = cfg.Logging.JSON
		log = logger.New(lc)
		cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./supportrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "project directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
