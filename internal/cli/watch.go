package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"reelstitch/internal/pipeline"
	"reelstitch/internal/ports"
	"reelstitch/internal/ports/adapters/webhook"
	"reelstitch/internal/queue"
	"reelstitch/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <inbox>",
		Short: "Watch an inbox directory and assemble run folders as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0])
		},
	}
	cmd.Flags().String("subtitles", "", "Burn captions at top, middle or bottom (empty disables)")
	return cmd
}

func runWatch(cmd *cobra.Command, inbox string) error {
	position, _ := cmd.Flags().GetString("subtitles")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	svc, err := pipeline.New(buildConfig(cmd))
	if err != nil {
		return err
	}

	var notifier ports.Notifier
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		notifier = webhook.New(url, os.Getenv("WEBHOOK_SECRET"))
	}

	q := queue.New(svc.RunJob, notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go q.Run(ctx)

	return watch.New(inbox, q, position, logger).Run(ctx)
}
