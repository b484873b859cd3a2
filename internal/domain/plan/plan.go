package plan

import (
	"errors"
	"fmt"

	"reelstitch/internal/types"
)

// Epsilon absorbs rounding noise from upstream duration probes; ffprobe
// reports container durations that can differ from the decoded stream by
// a frame or two. Duration comparisons must never use exact equality.
const Epsilon = 0.001

// SafetyMargin is added to a boundary-clip trim request. Re-encoding can
// round the cut length down by a frame, producing a premature cutoff;
// asking for slightly more and letting the mux's shortest-stream policy
// set the true end point avoids that.
const SafetyMargin = 0.05

var ErrInvalidInput = errors.New("invalid input")

// Plan is the outcome of reconciling clip durations against a voiceover.
// When NeedsTrim is set, the last entry of Selected is the boundary clip
// and must be shortened to BoundaryTrimSeconds from its start.
type Plan struct {
	Selected            []types.ClipDuration
	BoundaryTrimSeconds float64
	NeedsTrim           bool
}

// Compute decides which clips to keep in full and whether the boundary
// clip must be trimmed so the assembled video does not overrun the
// voiceover. Clips are consumed in playback order; the result is either
// the whole input or a strict prefix of it.
func Compute(clips []types.ClipDuration, targetSeconds float64) (Plan, error) {
	if len(clips) == 0 {
		return Plan{}, fmt.Errorf("%w: clip list is empty", ErrInvalidInput)
	}
	if targetSeconds < 0 {
		return Plan{}, fmt.Errorf("%w: target duration %.3f is negative", ErrInvalidInput, targetSeconds)
	}
	total := 0.0
	for _, c := range clips {
		if c.Seconds < 0 {
			return Plan{}, fmt.Errorf("%w: clip %q has negative duration %.3f", ErrInvalidInput, c.Path, c.Seconds)
		}
		total += c.Seconds
	}

	// Voiceover at least as long as all clips combined: keep everything.
	// Padding the audio, if any, is the coordinator's call.
	if targetSeconds >= total-Epsilon {
		return Plan{Selected: append([]types.ClipDuration(nil), clips...)}, nil
	}

	acc := 0.0
	selected := make([]types.ClipDuration, 0, len(clips))
	for _, c := range clips {
		if acc+c.Seconds < targetSeconds-Epsilon {
			selected = append(selected, c)
			acc += c.Seconds
			continue
		}
		remaining := targetSeconds - acc
		if remaining < 0 {
			remaining = 0
		}
		if remaining > Epsilon {
			selected = append(selected, c)
			return Plan{Selected: selected, BoundaryTrimSeconds: remaining, NeedsTrim: true}, nil
		}
		// Prior clips already hit the target within tolerance.
		return Plan{Selected: selected}, nil
	}

	// Unreachable given the total guard above; returning everything
	// untrimmed is the safe fallback. Callers log this as an invariant
	// violation via ExhaustedAllClips.
	return Plan{Selected: append([]types.ClipDuration(nil), clips...)}, nil
}

// ExhaustedAllClips reports whether p looks like the defensive fallback
// of Compute: every clip selected, no trim, yet the target was short of
// the total. Useful for logging only.
func ExhaustedAllClips(p Plan, clips []types.ClipDuration, targetSeconds float64) bool {
	if p.NeedsTrim || len(p.Selected) != len(clips) {
		return false
	}
	total := 0.0
	for _, c := range clips {
		total += c.Seconds
	}
	return targetSeconds < total-Epsilon
}

// TrimTarget converts a planned boundary trim into the cut length to
// request from the transcoder. The cut never exceeds what the source
// actually holds.
func TrimTarget(sourceSeconds, remainingSeconds float64) float64 {
	t := remainingSeconds + SafetyMargin
	if sourceSeconds < t {
		return sourceSeconds
	}
	return t
}
