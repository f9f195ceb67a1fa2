package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nnetctl/internal/sizespec"
)

func newSizeSpecCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "sizespec",
		Short:       "Inspect minibatch size specifications",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <minibatch-size>",
		Short: "Check a minibatch size string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := sizespec.ParseMinibatchSize(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s\n", spec)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "halve <minibatch-size>",
		Short: "Halve every size of a minibatch size string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			halved, err := sizespec.HalveMinibatchSizeStr(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), halved)
			return nil
		},
	})
	return cmd
}

func newChunkWidthCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "chunkwidth <frames-per-eg>",
		Short:       "Validate a chunk width list and print its principal width",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := sizespec.ParseChunkWidth(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "principal: %d\nwidths: %s\n", width.Principal(), width)
			return nil
		},
	}
}
