package cli

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"reelstitch/internal/pipeline"
)

// buildConfig assembles the pipeline config from flags and environment.
// Flags win for the directories; everything tool-shaped comes from env
// so a single .env configures all three commands.
func buildConfig(cmd *cobra.Command) pipeline.Config {
	outDir, _ := cmd.Flags().GetString("out")
	workDir, _ := cmd.Flags().GetString("work")

	return pipeline.Config{
		WorkBase: workDir,
		OutDir:   outDir,

		FFmpegPath:  getenvDefault("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getenvDefault("FFPROBE_PATH", "ffprobe"),

		WhisperBin:   getenvDefault("WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel: getenvDefault("WHISPER_MODEL", ".cache/models/ggml-base.bin"),
		Language:     getenvDefault("WHISPER_LANGUAGE", "auto"),

		VoiceServiceURL: os.Getenv("VOICE_SERVICE_URL"),
		VoiceAPIKey:     os.Getenv("VOICE_API_KEY"),

		StylePath: os.Getenv("SUBTITLE_STYLE_PATH"),

		Logf: log.Printf,
	}
}
