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
	"reelstitch/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the assembly worker",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", getenvDefault("LISTEN_ADDR", ":8080"), "Listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	svc, err := pipeline.New(buildConfig(cmd))
	if err != nil {
		return err
	}

	var notifier ports.Notifier
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		notifier = webhook.New(url, os.Getenv("WEBHOOK_SECRET"))
		logger.Info("webhook notifications enabled", "url", url)
	}

	q := queue.New(svc.RunJob, notifier, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go q.Run(ctx)

	return server.New(q, logger, addr).Start(ctx)
}
