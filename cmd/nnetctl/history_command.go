package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nnetctl/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var runID string
	var all bool
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show iterations recorded in the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := validateFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := selectRun(cmd, store, runID, all)
			if err != nil {
				return err
			}
			filter := ""
			if run != nil {
				filter = run.RunID
			}
			iterations, err := store.History(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if outFormat != formatTable {
				return writeStructured(cmd, outFormat, historyRows(iterations))
			}

			out := cmd.OutOrStdout()
			if run != nil {
				fmt.Fprintf(out, "Run %s  %s  started %s\n", run.RunID, label(string(run.Status)), run.StartedAt.Local().Format(time.DateTime))
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error: %s\n", run.ErrorMessage)
				}
			}
			if len(iterations) == 0 {
				fmt.Fprintln(out, "No iterations recorded")
				return nil
			}
			rows := make([][]string, 0, len(iterations))
			for _, it := range iterations {
				rows = append(rows, []string{
					strconv.Itoa(it.Iter),
					strconv.Itoa(it.NumJobs),
					strconv.FormatFloat(it.LearningRate, 'g', 6, 64),
					label(string(it.Mode)),
					joinInts(it.Accepted),
					strconv.Itoa(it.Best),
					strconv.FormatFloat(it.ShrinkScale, 'g', -1, 64),
					it.CompletedAt.Local().Format(time.DateTime),
				})
			}
			headers := []string{"Iter", "Jobs", "Learning Rate", "Mode", "Accepted", "Best", "Shrink", "Completed"}
			aligns := []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}
			fmt.Fprintln(out, renderTable(headers, rows, aligns, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID to show (latest run when unset)")
	cmd.Flags().BoolVar(&all, "all", false, "Show iterations of every run")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table, json or yaml")
	return cmd
}

func selectRun(cmd *cobra.Command, store *ledger.Store, runID string, all bool) (*ledger.Run, error) {
	if all {
		return nil, nil
	}
	if runID == "" {
		return store.LatestRun(cmd.Context())
	}
	runs, err := store.Runs(cmd.Context())
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].RunID == runID {
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("run %s not found in %s", runID, store.Path())
}

type historyRow struct {
	RunID         string  `json:"run_id" yaml:"run_id"`
	Iter          int     `json:"iter" yaml:"iter"`
	NumJobs       int     `json:"num_jobs" yaml:"num_jobs"`
	LearningRate  float64 `json:"learning_rate" yaml:"learning_rate"`
	Mode          string  `json:"mode" yaml:"mode"`
	Accepted      []int   `json:"accepted" yaml:"accepted"`
	Best          int     `json:"best" yaml:"best"`
	ShrinkScale   float64 `json:"shrink_scale" yaml:"shrink_scale"`
	MinibatchSize string  `json:"minibatch_size" yaml:"minibatch_size"`
	CompletedAt   string  `json:"completed_at" yaml:"completed_at"`
}

func historyRows(iterations []ledger.Iteration) []historyRow {
	rows := make([]historyRow, 0, len(iterations))
	for _, it := range iterations {
		rows = append(rows, historyRow{
			RunID:         it.RunID,
			Iter:          it.Iter,
			NumJobs:       it.NumJobs,
			LearningRate:  it.LearningRate,
			Mode:          string(it.Mode),
			Accepted:      it.Accepted,
			Best:          it.Best,
			ShrinkScale:   it.ShrinkScale,
			MinibatchSize: it.MinibatchSize,
			CompletedAt:   it.CompletedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
