package subtitles

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Style carries the burn-in appearance parameters passed to the
// transcoder's force_style clause. Colours use the ASS &HAABBGGRR form.
type Style struct {
	FontName      string `json:"font_name"`
	FontSize      int    `json:"font_size"`
	Bold          int    `json:"bold"`
	Outline       int    `json:"outline"`
	Shadow        int    `json:"shadow"`
	PrimaryColour string `json:"primary_colour_ass"`
	OutlineColour string `json:"outline_colour_ass"`
	MarginV       int    `json:"margin_v"`
	MarginTop     int    `json:"margin_top"`
	MarginMiddle  int    `json:"margin_middle"`
	MarginBottom  int    `json:"margin_bottom"`
}

func DefaultStyle() Style {
	return Style{
		FontName:      "DejaVu Sans",
		FontSize:      22,
		Bold:          1,
		Outline:       2,
		Shadow:        1,
		PrimaryColour: "&H0000FFFF",
		OutlineColour: "&H00000000",
		MarginV:       80,
		MarginTop:     100,
		MarginMiddle:  80,
		MarginBottom:  100,
	}
}

// LoadStyle reads a JSON style file over the defaults. A missing file is
// not an error; partial files override only the keys they set.
func LoadStyle(path string) (Style, error) {
	st := DefaultStyle()
	if path == "" {
		return st, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read style config: %w", err)
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return DefaultStyle(), fmt.Errorf("parse style config %s: %w", path, err)
	}
	return st, nil
}

// AlignmentForPosition maps a caption position to its ASS numpad
// alignment code.
func AlignmentForPosition(pos string) int {
	switch strings.ToLower(strings.TrimSpace(pos)) {
	case "top":
		return 8
	case "middle":
		return 5
	default:
		return 2
	}
}

func (s Style) marginFor(pos string) int {
	switch strings.ToLower(strings.TrimSpace(pos)) {
	case "top":
		return s.MarginTop
	case "middle":
		return s.MarginMiddle
	default:
		return s.MarginBottom
	}
}

// ForceStyle renders the ffmpeg subtitles filter force_style clause for
// the given caption position.
func (s Style) ForceStyle(position string) string {
	return fmt.Sprintf(
		"Alignment=%d,MarginV=%d,FontName=%s,FontSize=%d,Bold=%d,Outline=%d,Shadow=%d,PrimaryColour=%s,OutlineColour=%s",
		AlignmentForPosition(position), s.marginFor(position),
		s.FontName, s.FontSize, s.Bold, s.Outline, s.Shadow,
		s.PrimaryColour, s.OutlineColour,
	)
}
