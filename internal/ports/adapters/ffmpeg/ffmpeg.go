package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"reelstitch/internal/ports"
)

// loudnorm target fixed across the service: -14 LUFS integrated,
// -1.5 dBTP true peak, LRA 7.
const loudnormFilter = "loudnorm=I=-14:TP=-1.5:LRA=7"

// trailerErrText is the ffmpeg diagnostic seen when +faststart remuxing
// hits a non-seekable destination volume.
const trailerErrText = "Error writing trailer"

var (
	ErrEmptyOutput = errors.New("transcoder output missing or empty")
	ErrTranscode   = errors.New("transcoder failure")
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func (a *Adapter) TrimClip(ctx context.Context, src string, targetSeconds float64, dst string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, trimArgs(src, targetSeconds, dst)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: trim clip: %v\n%s", ErrTranscode, err, string(b))
	}
	if err := verifyOutput(dst); err != nil {
		return fmt.Errorf("trim clip: %w", err)
	}
	return nil
}

func trimArgs(src string, targetSeconds float64, dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", "0", "-t", strconv.FormatFloat(targetSeconds, 'f', 3, 64),
		"-i", src,
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-an",
		dst,
	}
}

func (a *Adapter) ConcatWithVoiceover(ctx context.Context, spec ports.ConcatSpec) error {
	if len(spec.ClipPaths) == 0 {
		return errors.New("clip list is empty")
	}
	if err := verifyInput(spec.VoiceoverPath); err != nil {
		return fmt.Errorf("voiceover: %w", err)
	}
	listPath, err := writeConcatList(filepath.Dir(spec.OutputPath), spec.ClipPaths)
	if err != nil {
		return err
	}
	defer os.Remove(listPath)

	build := func(dst string, fastStart bool) []string {
		return concatVoiceArgs(listPath, spec.VoiceoverPath, dst, spec.PadAudio, fastStart)
	}
	return a.runToTemp(ctx, spec.OutputPath, build)
}

func concatVoiceArgs(listPath, voiceoverPath, dst string, padAudio, fastStart bool) []string {
	filter := "[1:a]" + loudnormFilter
	if padAudio {
		// Padding keeps a clean trailing silence when the voiceover
		// outlasts the video; when trimming to the voiceover the audio
		// must stay the limiting stream, so no pad.
		filter += ",apad"
	}
	filter += "[aud]"
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-i", voiceoverPath,
		"-filter_complex", filter,
		"-map", "0:v:0", "-map", "[aud]",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "aac",
		"-shortest",
	}
	if fastStart {
		args = append(args, "-movflags", "+faststart")
	}
	return append(args, dst)
}

func (a *Adapter) BurnSubtitles(ctx context.Context, spec ports.BurnSpec) error {
	filter := "subtitles='" + escapeFilterPath(spec.SubtitlePath) + "'"
	if spec.ForceStyle != "" {
		filter += ":force_style='" + spec.ForceStyle + "'"
	}
	build := func(dst string, fastStart bool) []string {
		args := []string{
			"-hide_banner", "-loglevel", "error", "-y",
			"-i", spec.InputPath,
			"-vf", filter,
			"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
			"-c:a", "aac",
		}
		if fastStart {
			args = append(args, "-movflags", "+faststart")
		}
		return append(args, dst)
	}
	return a.runToTemp(ctx, spec.OutputPath, build)
}

// runToTemp executes one mux attempt into a temp file next to the final
// destination, retries exactly once without +faststart when ffmpeg
// reports a trailer write error, verifies the result is non-empty, and
// renames it into place. A failed run never leaves a partial file at the
// destination path.
func (a *Adapter) runToTemp(ctx context.Context, outputPath string, build func(dst string, fastStart bool) []string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "mux-*.mp4")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	out, err := a.run(ctx, build(tmpPath, true))
	if err != nil && strings.Contains(out, trailerErrText) {
		out, err = a.run(ctx, build(tmpPath, false))
	}
	if err != nil {
		return fmt.Errorf("%w: %v\n%s", ErrTranscode, err, out)
	}
	if err := verifyOutput(tmpPath); err != nil {
		return err
	}
	return os.Rename(tmpPath, outputPath)
}

func (a *Adapter) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}

func writeConcatList(dir string, clipPaths []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range clipPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		// Concat demuxer entries use single-quoted POSIX paths.
		fmt.Fprintf(&b, "file '%s'\n", filepath.ToSlash(abs))
	}
	listPath := filepath.Join(dir, "inputs.txt")
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return listPath, nil
}

func verifyInput(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	if st.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// verifyOutput treats a zero-byte result as a silent transcoder failure.
func verifyOutput(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmptyOutput, err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyOutput, path)
	}
	return nil
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
