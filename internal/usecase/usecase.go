package usecase

import (
	"context"
	"fmt"
	"path/filepath"

	"reelstitch/internal/domain/captions"
	"reelstitch/internal/domain/plan"
	"reelstitch/internal/domain/subtitles"
	"reelstitch/internal/ports"
	"reelstitch/internal/types"
)

type Deps struct {
	Transcoder ports.Transcoder
	Probe      ports.DurationProbe
	ASR        ports.SpeechRecognizer
}

// Coordinator glues the duration planner and caption chunker to the
// transcoder: one invocation assembles the narrated video, a second
// burns the caption track.
type Coordinator struct{ d Deps }

func New(d Deps) Coordinator { return Coordinator{d: d} }

type Input struct {
	ClipPaths     []string
	VoiceoverPath string
	OutputPath    string

	// WorkDir holds intermediate files (trimmed boundary clip, caption
	// sidecar, ASR cache).
	WorkDir string

	BurnCaptions string // "" disables; otherwise top|middle|bottom
	Style        subtitles.Style
	CaptionOpts  captions.Options

	Logf func(format string, args ...any)
}

type Result struct {
	OutputPath   string
	Plan         plan.Plan
	PaddedAudio  bool
	SubtitlePath string
	CueCount     int
}

// boundary trims below this are treated as noise and skipped; the
// shortest-stream mux policy already absorbs them.
const minTrimSeconds = 0.01

func (c Coordinator) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	// When captions are burned, the assembly is staged inside the work
	// dir and only the burn pass writes to the final destination. OutDir
	// and WorkDir may sit on different filesystems, so a cross-directory
	// rename is never an option.
	assembleTarget := in.OutputPath
	if in.BurnCaptions != "" {
		assembleTarget = filepath.Join(in.WorkDir, "assembled_nosubs.mp4")
	}

	res, err := c.assemble(ctx, in, assembleTarget, logf)
	if err != nil {
		return Result{}, err
	}

	if in.BurnCaptions != "" {
		if err := c.addCaptions(ctx, in, assembleTarget, &res, logf); err != nil {
			return Result{}, err
		}
		res.OutputPath = in.OutputPath
	}
	return res, nil
}

func (c Coordinator) assemble(ctx context.Context, in Input, target string, logf func(string, ...any)) (Result, error) {
	voiceSec, err := c.d.Probe.ProbeDuration(ctx, in.VoiceoverPath)
	if err != nil {
		return Result{}, fmt.Errorf("probe voiceover: %w", err)
	}

	clips := make([]types.ClipDuration, 0, len(in.ClipPaths))
	total := 0.0
	for _, p := range in.ClipPaths {
		d, err := c.d.Probe.ProbeDuration(ctx, p)
		if err != nil {
			return Result{}, fmt.Errorf("probe clip %s: %w", p, err)
		}
		clips = append(clips, types.ClipDuration{Path: p, Seconds: d})
		total += d
	}

	pl, err := plan.Compute(clips, voiceSec)
	if err != nil {
		return Result{}, err
	}
	if plan.ExhaustedAllClips(pl, clips, voiceSec) {
		logf("planner invariant violated: exhausted all clips with target %.3f < total %.3f", voiceSec, total)
	}
	logf("plan: %d/%d clips, trim=%.3fs needsTrim=%v voice=%.3fs total=%.3fs",
		len(pl.Selected), len(clips), pl.BoundaryTrimSeconds, pl.NeedsTrim, voiceSec, total)

	paths := make([]string, 0, len(pl.Selected))
	for _, cd := range pl.Selected {
		paths = append(paths, cd.Path)
	}

	if pl.NeedsTrim && pl.BoundaryTrimSeconds > minTrimSeconds {
		boundary := pl.Selected[len(pl.Selected)-1]
		cut := plan.TrimTarget(boundary.Seconds, pl.BoundaryTrimSeconds)
		trimmed := filepath.Join(in.WorkDir, "trimmed_last.mp4")
		logf("trimming boundary clip %s to %.3fs", boundary.Path, cut)
		if err := c.d.Transcoder.TrimClip(ctx, boundary.Path, cut, trimmed); err != nil {
			return Result{}, fmt.Errorf("trim boundary clip: %w", err)
		}
		paths[len(paths)-1] = trimmed
	}

	// Audio padding only when the voiceover covers all clips: the pad
	// guarantees clean trailing silence. When trimming to the voiceover,
	// audio must remain the limiting stream.
	padAudio := !pl.NeedsTrim && voiceSec >= total-plan.Epsilon

	err = c.d.Transcoder.ConcatWithVoiceover(ctx, ports.ConcatSpec{
		ClipPaths:     paths,
		VoiceoverPath: in.VoiceoverPath,
		OutputPath:    target,
		PadAudio:      padAudio,
	})
	if err != nil {
		return Result{}, fmt.Errorf("assemble: %w", err)
	}
	return Result{OutputPath: target, Plan: pl, PaddedAudio: padAudio}, nil
}

func (c Coordinator) addCaptions(ctx context.Context, in Input, assembled string, res *Result, logf func(string, ...any)) error {
	// Transcribe the voiceover rather than the muxed video: the mux can
	// carry silence-padded audio, and the voiceover is already the only
	// speech source.
	tr, err := c.d.ASR.Transcribe(ctx, in.VoiceoverPath, in.WorkDir)
	if err != nil {
		return fmt.Errorf("transcribe voiceover: %w", err)
	}

	cues := captions.Build(tr.Segments, in.CaptionOpts)
	logf("captions: %d cues from %d segments", len(cues), len(tr.Segments))

	srtPath := filepath.Join(in.WorkDir, "generated.srt")
	if err := subtitles.WriteSRTFile(srtPath, cues); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}

	err = c.d.Transcoder.BurnSubtitles(ctx, ports.BurnSpec{
		InputPath:    assembled,
		SubtitlePath: srtPath,
		OutputPath:   in.OutputPath,
		ForceStyle:   in.Style.ForceStyle(in.BurnCaptions),
	})
	if err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}
	res.SubtitlePath = srtPath
	res.CueCount = len(cues)
	return nil
}
