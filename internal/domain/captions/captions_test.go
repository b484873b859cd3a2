package captions

import (
	"math"
	"strings"
	"testing"

	"reelstitch/internal/types"
)

func words(texts []string, step float64) []types.Word {
	out := make([]types.Word, 0, len(texts))
	t := 0.0
	for _, w := range texts {
		out = append(out, types.Word{Start: t, End: t + step, Word: w})
		t += step
	}
	return out
}

func TestBuild_WordPathGroupsByMaxWords(t *testing.T) {
	ws := words([]string{"one", "two", "three", "four", "five", "six", "seven", "eight"}, 0.5)
	seg := types.Segment{Start: 0, End: 4, Text: "ignored", Words: ws}
	cues := Build([]types.Segment{seg}, DefaultOptions())
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(cues), cues)
	}
	for k, c := range cues {
		tokens := strings.Fields(strings.ReplaceAll(c.Text, "\n", " "))
		if len(tokens) > 4 {
			t.Fatalf("cue %d has %d tokens, max is 4: %q", k, len(tokens), c.Text)
		}
	}
	if cues[0].Start != 0 || math.Abs(cues[0].End-2.0) > 1e-9 {
		t.Fatalf("unexpected first cue timing: %+v", cues[0])
	}
}

func TestBuild_ExtendsGroupToMeetMinDuration(t *testing.T) {
	// Each word lasts 0.1s; four words give 0.4s, under the 0.6s floor,
	// so the group must absorb two more words.
	ws := words([]string{"a", "b", "c", "d", "e", "f", "g", "h"}, 0.1)
	seg := types.Segment{Start: 0, End: 0.8, Words: ws}
	cues := Build([]types.Segment{seg}, DefaultOptions())
	if len(cues) == 0 {
		t.Fatal("no cues emitted")
	}
	first := cues[0]
	if got := first.End - first.Start; got < 0.6-1e-9 {
		t.Fatalf("first cue duration %.3f below floor", got)
	}
	tokens := strings.Fields(strings.ReplaceAll(first.Text, "\n", " "))
	if len(tokens) != 6 {
		t.Fatalf("expected 6 absorbed tokens, got %d (%q)", len(tokens), first.Text)
	}
}

func TestBuild_DurationFloorHoldsExceptFinalCue(t *testing.T) {
	ws := words([]string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}, 0.2)
	seg := types.Segment{Start: 0, End: 1.8, Words: ws}
	cues := Build([]types.Segment{seg}, DefaultOptions())
	for k, c := range cues[:len(cues)-1] {
		if c.End-c.Start < 0.6-1e-9 {
			t.Fatalf("cue %d duration %.3f below floor", k, c.End-c.Start)
		}
	}
}

func TestBuild_TwoLineSplit(t *testing.T) {
	ws := words([]string{"alpha", "beta", "gamma", "delta"}, 0.5)
	seg := types.Segment{Start: 0, End: 2, Words: ws}
	cues := Build([]types.Segment{seg}, DefaultOptions())
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	lines := strings.Split(cues[0].Text, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", cues[0].Text)
	}
	if lines[0] != "alpha beta" || lines[1] != "gamma delta" {
		t.Fatalf("unexpected split: %q / %q", lines[0], lines[1])
	}
}

func TestBuild_FirstLineNeverKeepsTrailingPunctuation(t *testing.T) {
	ws := words([]string{"Wait,", "really?", "yes.", "indeed."}, 0.5)
	seg := types.Segment{Start: 0, End: 2, Words: ws}
	cues := Build([]types.Segment{seg}, DefaultOptions())
	lines := strings.Split(cues[0].Text, "\n")
	if lines[0] != "Wait, really" {
		t.Fatalf("expected inner punctuation kept, trailing stripped: %q", lines[0])
	}
	// Single cue consumes the whole segment, so the bottom line is
	// segment-final and keeps its punctuation.
	if lines[1] != "yes. indeed." {
		t.Fatalf("expected final punctuation preserved: %q", lines[1])
	}
}

func TestBuild_ProportionalFallback(t *testing.T) {
	seg := types.Segment{Start: 10, End: 20, Text: "one two three four five six seven eight"}
	cues := Build([]types.Segment{seg}, DefaultOptions())
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Start != 10 || math.Abs(cues[0].End-15) > 1e-9 {
		t.Fatalf("unexpected first cue span: %+v", cues[0])
	}
	// Fallback cues touch: end of k equals start of k+1.
	if cues[0].End != cues[1].Start {
		t.Fatalf("cues must touch in fallback path: %+v", cues)
	}
	if math.Abs(cues[1].End-20) > 1e-9 {
		t.Fatalf("last cue must end at segment end: %+v", cues[1])
	}
}

func TestBuild_ProportionalUnevenGroups(t *testing.T) {
	seg := types.Segment{Start: 0, End: 6, Text: "a b c d e f"}
	cues := Build([]types.Segment{seg}, Options{MaxWords: 4, MinCueSeconds: 0.6})
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if math.Abs(cues[0].End-4) > 1e-9 || math.Abs(cues[1].End-6) > 1e-9 {
		t.Fatalf("unexpected proportional ends: %+v", cues)
	}
}

func TestBuild_EmptySegmentSkipped(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, End: 1, Text: "   "},
		{Start: 1, End: 2, Text: "hello world"},
	}
	cues := Build(segs, DefaultOptions())
	if len(cues) != 1 {
		t.Fatalf("expected the empty segment to be skipped, got %d cues", len(cues))
	}
	if cues[0].Text != "hello world" {
		t.Fatalf("unexpected cue text %q", cues[0].Text)
	}
}

func TestBuild_MultipleSegmentsStayOrdered(t *testing.T) {
	segs := []types.Segment{
		{Start: 0, End: 2, Words: words([]string{"first", "segment"}, 1.0)},
		{Start: 2, End: 4, Text: "second segment here"},
	}
	cues := Build(segs, DefaultOptions())
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	for k := 1; k < len(cues); k++ {
		if cues[k].Start < cues[k-1].End-1e-9 {
			t.Fatalf("cues overlap: %+v", cues)
		}
	}
}

func TestCleanChunkText_PunctuationRule(t *testing.T) {
	tokens := []string{"Hello", "world", "!"}
	if got := cleanChunkText(tokens, false); got != "Hello world" {
		t.Fatalf("non-final clean = %q, want %q", got, "Hello world")
	}
	if got := cleanChunkText(tokens, true); got != "Hello world!" {
		t.Fatalf("final clean = %q, want %q", got, "Hello world!")
	}
}

func TestCleanChunkText_QuoteStripping(t *testing.T) {
	tokens := []string{`"Hello"`, `'world'`}
	if got := cleanChunkText(tokens, true); got != "Hello world" {
		t.Fatalf("quote strip = %q, want %q", got, "Hello world")
	}
	curly := []string{"“quoted”", "‘text’"}
	if got := cleanChunkText(curly, true); got != "quoted text" {
		t.Fatalf("curly quote strip = %q", got)
	}
}

func TestCleanChunkText_StripsRepeatedTrailingPunctuation(t *testing.T) {
	if got := cleanChunkText([]string{"well", "then...?!"}, false); got != "well then" {
		t.Fatalf("got %q, want %q", got, "well then")
	}
	if got := cleanChunkText([]string{"ellipsis…"}, false); got != "ellipsis" {
		t.Fatalf("got %q, want %q", got, "ellipsis")
	}
}

func TestCleanChunkText_CollapsesWhitespace(t *testing.T) {
	if got := cleanChunkText([]string{" a ", "", "b"}, true); got != "a b" {
		t.Fatalf("got %q, want %q", got, "a b")
	}
}
