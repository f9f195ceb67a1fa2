package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nnetctl/internal/egs"
)

func newEgsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "egs",
		Short: "Training example utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check the egs directory against the configured dimensions and context",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			info, err := egs.Verify(cfg.Paths.EgsDir, cfg.Egs, ctx.stderrLogger())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Egs directory: %s\n", cfg.Paths.EgsDir)
			rows := [][]string{
				{"feat_dim", fmt.Sprint(info.FeatDim)},
				{"ivector_dim", fmt.Sprint(info.IvectorDim)},
				{"ivector_extractor_id", info.IvectorID},
				{"context", fmt.Sprintf("%d,%d", info.LeftContext, info.RightContext)},
				{"initial/final context", fmt.Sprintf("%d,%d", info.LeftContextInitial, info.RightContextFinal)},
				{"frames_per_eg", info.FramesPerEg.String()},
				{"num_archives", fmt.Sprint(info.NumArchives)},
			}
			fmt.Fprintln(out, renderTable([]string{"Property", "Value"}, rows, nil, shouldColorize(out)))
			fmt.Fprintln(out, "Egs directory valid")
			return nil
		},
	})
	return cmd
}
