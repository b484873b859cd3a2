package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:          "reelstitch",
		Short:        "Assemble narrated videos from voiceovers and clips",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().String("out", getenvDefault("REELSTITCH_OUT_DIR", "out"), "Output directory")
	root.PersistentFlags().String("work", os.Getenv("REELSTITCH_WORK_DIR"), "Work directory for session files")

	root.AddCommand(newStitchCmd(), newServeCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
