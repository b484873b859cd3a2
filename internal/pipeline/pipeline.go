package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"reelstitch/internal/domain/captions"
	"reelstitch/internal/domain/subtitles"
	"reelstitch/internal/fetch"
	"reelstitch/internal/ports"
	"reelstitch/internal/ports/adapters/ffmpeg"
	"reelstitch/internal/ports/adapters/voicesynth"
	"reelstitch/internal/ports/adapters/whispercpp"
	"reelstitch/internal/queue"
	"reelstitch/internal/types"
	"reelstitch/internal/usecase"
)

type Config struct {
	// WorkBase is the root for transient session directories.
	// If empty, defaults to <os temp>/reelstitch.
	WorkBase string
	// OutDir receives final assembled files.
	OutDir string

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string
	Language     string

	VoiceServiceURL string
	VoiceAPIKey     string

	StylePath string

	Logf func(format string, args ...any)
}

func (c Config) Validate() error {
	if c.OutDir == "" {
		return errors.New("out dir is empty")
	}
	if c.WhisperBin == "" {
		return errors.New("whisper binary path is required")
	}
	if c.WhisperModel == "" {
		return errors.New("whisper model path is required")
	}
	return nil
}

// Service wires the adapters once and executes assembly jobs. Safe for
// use as a queue.Runner: every job works in its own session directory.
type Service struct {
	cfg   Config
	video *ffmpeg.Adapter
	synth ports.VoiceSynth
	style subtitles.Style
	logf  func(format string, args ...any)
}

func New(cfg Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	style, err := subtitles.LoadStyle(cfg.StylePath)
	if err != nil {
		return nil, err
	}

	var synth ports.VoiceSynth
	if cfg.VoiceServiceURL != "" {
		synth = voicesynth.New(cfg.VoiceServiceURL, cfg.VoiceAPIKey)
	}

	return &Service{
		cfg:   cfg,
		video: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		synth: synth,
		style: style,
		logf:  logf,
	}, nil
}

// coordinator builds the per-run orchestration. The recognizer is
// constructed per run because the language can be overridden per job.
func (s *Service) coordinator(language string) usecase.Coordinator {
	if language == "" {
		language = s.cfg.Language
	}
	return usecase.New(usecase.Deps{
		Transcoder: s.video,
		Probe:      s.video,
		ASR:        whispercpp.New(s.cfg.WhisperBin, s.cfg.WhisperModel, language),
	})
}

// RunJob materializes the request's sources into a fresh session
// directory, assembles the narrated video, and returns the final path.
func (s *Service) RunJob(ctx context.Context, job queue.Job) (string, error) {
	req := job.Request
	if len(req.Videos) == 0 {
		return "", errors.New("request has no videos")
	}
	if req.Voiceover == "" && strings.TrimSpace(req.Script) == "" {
		return "", errors.New("request needs a voiceover or a script")
	}

	session := job.ID
	if session == "" {
		session = uuid.NewString()
	}
	workDir := filepath.Join(s.workBase(), session)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", err
	}
	s.logf("session %s: workdir %s", session, workDir)

	voicePath := filepath.Join(workDir, "voiceover.mp3")
	if req.Voiceover != "" {
		if err := fetch.Obtain(ctx, req.Voiceover, voicePath); err != nil {
			return "", err
		}
	} else {
		if s.synth == nil {
			return "", errors.New("voice synthesis requested but no voice service configured")
		}
		s.logf("session %s: synthesizing voiceover (%d chars)", session, len(req.Script))
		if err := s.synth.Synthesize(ctx, req.Script, voicePath); err != nil {
			return "", err
		}
	}

	clipPaths := make([]string, 0, len(req.Videos))
	for i, src := range req.Videos {
		dst := filepath.Join(workDir, fmt.Sprintf("video_%03d.mp4", i))
		if err := fetch.Obtain(ctx, src, dst); err != nil {
			return "", fmt.Errorf("video %d: %w", i, err)
		}
		clipPaths = append(clipPaths, dst)
	}

	return s.assemble(ctx, session, workDir, voicePath, clipPaths, req.Subtitles, req.Language)
}

// AssembleFolder runs the folder convention: the first mp3 (or wav) is
// the narration, sorted mp4s are the clips.
func (s *Service) AssembleFolder(ctx context.Context, folder, position string) (string, error) {
	voice, clips, err := ScanRunFolder(folder)
	if err != nil {
		return "", err
	}
	session := uuid.NewString()
	workDir := filepath.Join(s.workBase(), session)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", err
	}
	s.logf("session %s: folder %s (%d clips)", session, folder, len(clips))
	return s.assemble(ctx, session, workDir, voice, clips, position, "")
}

func (s *Service) assemble(ctx context.Context, session, workDir, voicePath string, clipPaths []string, position, language string) (string, error) {
	if err := os.MkdirAll(s.cfg.OutDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(s.cfg.OutDir, "stitched_"+session+".mp4")

	res, err := s.coordinator(language).Run(ctx, usecase.Input{
		ClipPaths:     clipPaths,
		VoiceoverPath: voicePath,
		OutputPath:    outPath,
		WorkDir:       workDir,
		BurnCaptions:  position,
		Style:         s.style,
		CaptionOpts:   captions.DefaultOptions(),
		Logf:          s.logf,
	})
	if err != nil {
		return "", err
	}

	if err := s.writeManifest(session, workDir, voicePath, res); err != nil {
		s.logf("session %s: manifest write failed: %v", session, err)
	}
	return res.OutputPath, nil
}

func (s *Service) writeManifest(session, workDir, voicePath string, res usecase.Result) error {
	m := types.Manifest{
		SessionID: session,
		Voiceover: voicePath,
		Output:    res.OutputPath,
		Trimmed:   res.Plan.NeedsTrim,
		TrimSec:   res.Plan.BoundaryTrimSeconds,
		Subtitles: res.SubtitlePath,
	}
	for _, c := range res.Plan.Selected {
		m.Clips = append(m.Clips, types.ManifestClip{File: c.Path, DurationSec: c.Seconds})
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(workDir, "manifest.json"), b, 0o644)
}

func (s *Service) workBase() string {
	if s.cfg.WorkBase != "" {
		return s.cfg.WorkBase
	}
	return filepath.Join(os.TempDir(), "reelstitch")
}

// ScanRunFolder applies the run-folder convention used by both the
// folder endpoint and the inbox watcher.
func ScanRunFolder(folder string) (voice string, clips []string, err error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return "", nil, err
	}
	var mp3s, wavs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp3":
			mp3s = append(mp3s, filepath.Join(folder, name))
		case ".wav":
			wavs = append(wavs, filepath.Join(folder, name))
		case ".mp4":
			clips = append(clips, filepath.Join(folder, name))
		}
	}
	sort.Strings(mp3s)
	sort.Strings(wavs)
	sort.Strings(clips)

	switch {
	case len(mp3s) > 0:
		voice = mp3s[0]
	case len(wavs) > 0:
		voice = wavs[0]
	default:
		return "", nil, fmt.Errorf("no mp3 or wav voiceover found in %s", folder)
	}
	if len(clips) == 0 {
		return "", nil, fmt.Errorf("no mp4 clips found in %s", folder)
	}
	return voice, clips, nil
}
