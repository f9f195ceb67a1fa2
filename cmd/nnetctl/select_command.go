package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"nnetctl/internal/selector"
)

func newSelectCommand(ctx *commandContext) *cobra.Command {
	var numModels int
	var pattern string
	var threshold float64
	var format string

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Rank candidate models by the objective in their training logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := validateFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Selection.DifferenceThreshold
			}
			selection, err := selector.GetSuccessfulModels(numModels, pattern, threshold, ctx.stderrLogger())
			if err != nil {
				return err
			}
			if outFormat != formatTable {
				return writeStructured(cmd, outFormat, map[string]any{
					"accepted":   selection.Accepted,
					"best":       selection.Best,
					"objectives": selection.Objectives,
				})
			}

			rows := make([][]string, 0, len(selection.Objectives))
			accepted := make(map[int]bool, len(selection.Accepted))
			for _, n := range selection.Accepted {
				accepted[n] = true
			}
			for i, objective := range selection.Objectives {
				model := i + 1
				rows = append(rows, []string{
					strconv.Itoa(model),
					strconv.FormatFloat(objective, 'g', -1, 64),
					yesNo(accepted[model]),
					yesNo(model == selection.Best),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Model", "Objective", "Accepted", "Best"}, rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft}, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().IntVar(&numModels, "num-models", 0, "Number of candidate models")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Log path pattern with % standing for the model number")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Accept models within this objective difference of the best")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json or yaml")
	_ = cmd.MarkFlagRequired("num-models")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}
