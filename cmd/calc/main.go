package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"go-chi-calculator/internal/observability"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "calc",
		Short: "Keypad calculator",
		Long: `Calc drives the calculator engine from the command line:

- eval: evaluate a formula the way the equals key does
- keys: press a sequence of keys and print the display
- tui:  interactive terminal keypad`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				return nil
			}
			return observability.InitLogger(zapcore.DebugLevel)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.SyncLogger()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")

	rootCmd.AddCommand(newEvalCmd(), newKeysCmd(), newTUICmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
