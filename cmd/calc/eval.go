package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/observability"
)

var errorColor = color.New(color.FgRed, color.Bold)

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a formula such as 2+3*4",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := engine.Evaluate(args[0])
			if err != nil {
				observability.Logger.Debug("evaluation failed",
					zap.String("expression", args[0]),
					zap.Error(err),
				)
				fmt.Fprintln(cmd.OutOrStdout(), errorColor.Sprint(engine.ErrorDisplay))
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), engine.FormatNumber(result))
			return nil
		},
	}
}
