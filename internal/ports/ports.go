package ports

import (
	"context"

	"reelstitch/internal/types"
)

// ConcatSpec describes one assembly mux: ordered clip files (boundary
// clip already trimmed by the caller), the voiceover track, and whether
// the audio stream is padded before the shortest-stream mux.
type ConcatSpec struct {
	ClipPaths     []string
	VoiceoverPath string
	OutputPath    string
	PadAudio      bool
}

// BurnSpec describes one subtitle burn-in pass.
type BurnSpec struct {
	InputPath    string
	SubtitlePath string
	OutputPath   string
	ForceStyle   string
}

type Transcoder interface {
	// ConcatWithVoiceover joins clips and muxes the voiceover with
	// loudness normalization.
	ConcatWithVoiceover(ctx context.Context, spec ConcatSpec) error
	// TrimClip re-encodes src cut to targetSeconds from its start.
	TrimClip(ctx context.Context, src string, targetSeconds float64, dst string) error
	// BurnSubtitles renders the subtitle file into the video stream.
	BurnSubtitles(ctx context.Context, spec BurnSpec) error
}

type DurationProbe interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

type SpeechRecognizer interface {
	Transcribe(ctx context.Context, mediaPath, cacheDir string) (types.Transcript, error)
}

type VoiceSynth interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// Notifier delivers job lifecycle events to an external receiver.
// Delivery failures are reported but callers treat them as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, event string, data map[string]any) error
}
