package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reelstitch/internal/pipeline"
)

func newStitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitch <folder>",
		Short: "Assemble one run folder (first mp3/wav + sorted mp4s)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStitch(cmd, args[0])
		},
	}
	cmd.Flags().String("subtitles", "", "Burn captions at top, middle or bottom (empty disables)")
	return cmd
}

func runStitch(cmd *cobra.Command, folder string) error {
	position, _ := cmd.Flags().GetString("subtitles")

	absFolder, err := filepath.Abs(folder)
	if err != nil {
		return err
	}

	svc, err := pipeline.New(buildConfig(cmd))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Hour)
	defer cancel()

	out, err := svc.AssembleFolder(ctx, absFolder, position)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
