package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"investor_onboarding/internal/config"
	"investor_onboarding/internal/draft"
	"investor_onboarding/internal/logger"
)

var Version = "dev"

// app общее состояние команд, заполняется в PersistentPreRunE
type app struct {
	fs     afero.Fs
	cfg    *config.ClientConfig
	log    *zap.Logger
	drafts draft.Store
}

func main() {
	if err := newRootCmd(afero.NewOsFs()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "investor-form",
		Short:         "Fill in and submit investor onboarding applications",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				os.Setenv("CONFIG_FILE", configFile)
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (yaml, json or toml)")

	rootCmd.AddCommand(submitCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(draftsCmd(a))
	rootCmd.AddCommand(formatCmd())

	return rootCmd
}

func (a *app) load() error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	var opts []logger.Option
	if cfg.Log.File != "" {
		opts = append(opts, logger.WithFile(cfg.Log.File))
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON, opts...)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.drafts = draft.NewFileStore(a.fs, cfg.DraftDir, log)
	return nil
}
