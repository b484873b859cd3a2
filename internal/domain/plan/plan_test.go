package plan

import (
	"errors"
	"math"
	"testing"

	"reelstitch/internal/types"
)

func clips(durs ...float64) []types.ClipDuration {
	out := make([]types.ClipDuration, 0, len(durs))
	for i, d := range durs {
		out = append(out, types.ClipDuration{Path: string(rune('a'+i)) + ".mp4", Seconds: d})
	}
	return out
}

func TestCompute_VoiceoverCoversAllClips(t *testing.T) {
	cs := clips(5, 5)
	p, err := Compute(cs, 10.0)
	if err != nil {
		t.Fatal(err)
	}
	if p.NeedsTrim || p.BoundaryTrimSeconds != 0 {
		t.Fatalf("expected no trim, got %+v", p)
	}
	if len(p.Selected) != 2 {
		t.Fatalf("expected all clips selected, got %d", len(p.Selected))
	}
}

func TestCompute_BoundaryClipTrimmed(t *testing.T) {
	cs := clips(5, 5, 5)
	p, err := Compute(cs, 12.0)
	if err != nil {
		t.Fatal(err)
	}
	if !p.NeedsTrim {
		t.Fatalf("expected trim, got %+v", p)
	}
	if len(p.Selected) != 3 {
		t.Fatalf("expected 3 selected clips, got %d", len(p.Selected))
	}
	if math.Abs(p.BoundaryTrimSeconds-2.0) > 1e-9 {
		t.Fatalf("expected 2.0s trim, got %f", p.BoundaryTrimSeconds)
	}
}

func TestCompute_ExactFitOnClipBoundary(t *testing.T) {
	cs := clips(5, 5, 5)
	p, err := Compute(cs, 10.0)
	if err != nil {
		t.Fatal(err)
	}
	if p.NeedsTrim {
		t.Fatalf("exact prefix fit must not trim: %+v", p)
	}
	if len(p.Selected) != 2 {
		t.Fatalf("expected 2 selected clips, got %d", len(p.Selected))
	}
}

func TestCompute_ShortfallWithinEpsilonMeansNoTrim(t *testing.T) {
	cs := clips(5, 5)
	// 0.5ms short of the total: treated as an exact match.
	p, err := Compute(cs, 9.9995)
	if err != nil {
		t.Fatal(err)
	}
	if p.NeedsTrim {
		t.Fatalf("shortfall within epsilon must not trim: %+v", p)
	}
	if len(p.Selected) != 2 {
		t.Fatalf("expected both clips, got %d", len(p.Selected))
	}
}

func TestCompute_TargetLongerThanClips(t *testing.T) {
	p, err := Compute(clips(3, 3), 20.0)
	if err != nil {
		t.Fatal(err)
	}
	if p.NeedsTrim || len(p.Selected) != 2 {
		t.Fatalf("expected all clips untrimmed, got %+v", p)
	}
}

func TestCompute_SelectedSumStaysUnderTarget(t *testing.T) {
	cases := []struct {
		name   string
		durs   []float64
		target float64
	}{
		{"mid clip", []float64{4, 7, 2, 9}, 13.5},
		{"first clip", []float64{10, 4}, 3.2},
		{"tiny remainder", []float64{1, 1, 1}, 2.0001},
		{"fractional", []float64{2.5, 2.5, 2.5}, 6.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Compute(clips(tc.durs...), tc.target)
			if err != nil {
				t.Fatal(err)
			}
			full := 0.0
			n := len(p.Selected)
			if p.NeedsTrim {
				n--
			}
			for _, c := range p.Selected[:n] {
				full += c.Seconds
			}
			if full > tc.target+Epsilon {
				t.Fatalf("full clips sum %.4f exceeds target %.4f", full, tc.target)
			}
			if got := full + p.BoundaryTrimSeconds; math.Abs(got-tc.target) > Epsilon && p.NeedsTrim {
				t.Fatalf("plan covers %.4f, want within epsilon of %.4f", got, tc.target)
			}
		})
	}
}

func TestCompute_MonotonicInTarget(t *testing.T) {
	cs := clips(4, 7, 2, 9, 1)
	prev := -1
	for target := 0.5; target < 25; target += 0.7 {
		p, err := Compute(cs, target)
		if err != nil {
			t.Fatal(err)
		}
		if len(p.Selected) < prev {
			t.Fatalf("selected count dropped from %d to %d at target %.1f", prev, len(p.Selected), target)
		}
		prev = len(p.Selected)
	}
}

func TestCompute_InvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		clips  []types.ClipDuration
		target float64
	}{
		{"empty", nil, 5},
		{"negative clip", clips(3, -1), 5},
		{"negative target", clips(3), -0.1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.clips, tc.target)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCompute_ZeroDurationClipsAllowed(t *testing.T) {
	cs := []types.ClipDuration{{Path: "a.mp4", Seconds: 0}, {Path: "b.mp4", Seconds: 5}}
	p, err := Compute(cs, 3.0)
	if err != nil {
		t.Fatal(err)
	}
	if !p.NeedsTrim {
		t.Fatalf("expected trim on second clip, got %+v", p)
	}
	if p.Selected[len(p.Selected)-1].Path != "b.mp4" {
		t.Fatalf("unexpected boundary clip: %+v", p.Selected)
	}
}

func TestTrimTarget(t *testing.T) {
	if got := TrimTarget(10, 2); math.Abs(got-2.05) > 1e-9 {
		t.Fatalf("TrimTarget(10, 2) = %f, want 2.05", got)
	}
	// Source shorter than the padded request: never ask for more than exists.
	if got := TrimTarget(2.01, 2); math.Abs(got-2.01) > 1e-9 {
		t.Fatalf("TrimTarget(2.01, 2) = %f, want 2.01", got)
	}
}

func TestExhaustedAllClips(t *testing.T) {
	cs := clips(5, 5)
	p, _ := Compute(cs, 12)
	if ExhaustedAllClips(p, cs, 12) {
		t.Fatalf("covering plan must not report exhaustion")
	}
	forged := Plan{Selected: cs}
	if !ExhaustedAllClips(forged, cs, 8) {
		t.Fatalf("expected exhaustion report for forged fallback plan")
	}
}
