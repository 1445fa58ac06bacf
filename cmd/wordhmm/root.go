package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ieee0824/wordhmm-go/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "wordhmm",
	Short: "Train discrete HMM word models from letter sub-models",
	Long: `wordhmm composes a hidden Markov model for every word of a labelled corpus
from shared silence and letter sub-models, then re-estimates them with EM.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
}

func newLogger(cmd *cobra.Command, fallback string) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	if name == "" {
		name = fallback
	}
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}
