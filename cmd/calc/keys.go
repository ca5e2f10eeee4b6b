package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/keypad"
	"go-chi-calculator/internal/observability"
)

func newKeysCmd() *cobra.Command {
	var steps bool

	cmd := &cobra.Command{
		Use:   "keys <key...>",
		Short: "Press keys in order and print the display",
		Long: `Keys presses each key on a fresh calculator. Compact arguments such as
"12+3=" are split into single keys; named keys (Enter, Escape, clear,
decimal, ...) are kept whole.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq := keypad.Split(args...)
			e := engine.New()

			displays, err := keypad.Replay(e, seq)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if steps {
				for i, display := range displays {
					fmt.Fprintf(out, "%-8s %s\n", seq[i], display)
				}
				return nil
			}

			display := e.Display()
			if display == engine.ErrorDisplay {
				observability.Logger.Debug("evaluation failed", zap.Error(e.Err()))
				display = errorColor.Sprint(display)
			}
			fmt.Fprintln(out, display)
			return nil
		},
	}

	cmd.Flags().BoolVar(&steps, "steps", false, "Print the display after every key")
	return cmd
}
