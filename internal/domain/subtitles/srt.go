// Package subtitles serializes caption cues to SubRip format and builds
// the style clause handed to the transcoder for burn-in.
package subtitles

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"reelstitch/internal/types"
)

// WriteSRT writes cues as sequential numbered SubRip entries.
func WriteSRT(w io.Writer, cues []types.Cue) error {
	for i, c := range cues {
		text := strings.TrimSpace(c.Text)
		if _, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End), text); err != nil {
			return err
		}
	}
	return nil
}

// WriteSRTFile writes cues to path atomically (temp file + rename).
func WriteSRTFile(path string, cues []types.Cue) error {
	var b strings.Builder
	if err := WriteSRT(&b, cues); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dirOf(path), "subs-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, os.PathSeparator); i >= 0 {
		return path[:i]
	}
	return "."
}

// FormatTimestamp renders seconds as the SubRip HH:MM:SS,mmm timecode.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3600000
	ms -= h * 3600000
	m := ms / 60000
	ms -= m * 60000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParseTimestamp parses a SubRip timecode back into seconds.
func ParseTimestamp(ts string) (float64, error) {
	var h, m, s, ms int
	if _, err := fmt.Sscanf(strings.TrimSpace(ts), "%d:%d:%d,%d", &h, &m, &s, &ms); err != nil {
		return 0, fmt.Errorf("parse timecode %q: %w", ts, err)
	}
	return float64(h)*3600 + float64(m)*60 + float64(s) + float64(ms)/1000, nil
}

// ParseSRT reads SubRip entries back into cues. Used by tests and by the
// inbox watcher when a run folder supplies pre-made subtitles.
func ParseSRT(r io.Reader) ([]types.Cue, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	blocks := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n\n")
	var out []types.Cue
	for _, blk := range blocks {
		lines := strings.Split(strings.TrimSpace(blk), "\n")
		if len(lines) < 2 {
			continue
		}
		// lines[0] is the sequence number; the timecode row follows.
		parts := strings.SplitN(lines[1], "-->", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed timecode row %q", lines[1])
		}
		start, err := ParseTimestamp(parts[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseTimestamp(parts[1])
		if err != nil {
			return nil, err
		}
		out = append(out, types.Cue{Start: start, End: end, Text: strings.Join(lines[2:], "\n")})
	}
	return out, nil
}
