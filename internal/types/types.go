package types

type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Segment is one span of recognized speech. Words may be empty when the
// recognizer produced no per-word timestamps; callers must branch on
// len(Words) explicitly rather than assume it is populated.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Cue is one timed caption entry. Text holds at most two lines separated
// by a single newline.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ClipDuration pairs a clip file with its probed duration in seconds.
// Order across a slice is playback order.
type ClipDuration struct {
	Path    string  `json:"path"`
	Seconds float64 `json:"seconds"`
}

type Manifest struct {
	SessionID string         `json:"session_id"`
	Voiceover string         `json:"voiceover"`
	Output    string         `json:"output"`
	Clips     []ManifestClip `json:"clips"`
	Trimmed   bool           `json:"trimmed"`
	TrimSec   float64        `json:"trim_sec,omitempty"`
	Subtitles string         `json:"subtitles,omitempty"`
}

type ManifestClip struct {
	File        string  `json:"file"`
	DurationSec float64 `json:"duration_sec"`
}
