// Package captions turns speech-recognition output into displayable,
// correctly timed caption cues. Cues are bounded in word count and
// minimum duration, with punctuation stripped on non-final cues so a cue
// cut mid-sentence does not visually imply sentence closure.
package captions

import (
	"strings"

	"reelstitch/internal/types"
)

type Options struct {
	// MaxWords caps tokens per cue. A cue may exceed the cap when extra
	// words are absorbed to satisfy MinCueSeconds.
	MaxWords int
	// MinCueSeconds is the attempted, not guaranteed, floor for cue
	// duration; the final cue of a segment may come up short.
	MinCueSeconds float64
}

func DefaultOptions() Options {
	return Options{MaxWords: 4, MinCueSeconds: 0.6}
}

// Build produces an ordered, non-overlapping cue sequence for the given
// segments. Pure function: identical input yields identical output.
// Segments with per-word timestamps drive cue timing from the words;
// segments without them fall back to allocating the segment span
// proportionally to token count.
func Build(segments []types.Segment, opts Options) []types.Cue {
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultOptions().MaxWords
	}
	if opts.MinCueSeconds <= 0 {
		opts.MinCueSeconds = DefaultOptions().MinCueSeconds
	}

	var cues []types.Cue
	for _, seg := range segments {
		if len(seg.Words) > 0 {
			cues = append(cues, buildFromWords(seg.Words, opts)...)
			continue
		}
		cues = append(cues, buildProportional(seg, opts)...)
	}
	return cues
}

func buildFromWords(words []types.Word, opts Options) []types.Cue {
	var out []types.Cue
	n := len(words)
	i := 0
	for i < n {
		j := i + opts.MaxWords
		if j > n {
			j = n
		}
		start := words[i].Start
		end := words[j-1].End
		// Absorb additional words, even beyond MaxWords, until the cue is
		// long enough to read or the segment runs out.
		for end-start < opts.MinCueSeconds && j < n {
			j++
			end = words[j-1].End
		}
		tokens := make([]string, 0, j-i)
		for _, w := range words[i:j] {
			tokens = append(tokens, strings.TrimSpace(w.Word))
		}
		out = append(out, types.Cue{Start: start, End: end, Text: layoutCue(tokens, j >= n)})
		i = j
	}
	return out
}

func buildProportional(seg types.Segment, opts Options) []types.Cue {
	tokens := strings.Fields(seg.Text)
	if len(tokens) == 0 {
		return nil
	}
	total := len(tokens)
	start := seg.Start
	segDur := seg.End - start
	if segDur < 0 {
		segDur = 0
	}

	var out []types.Cue
	i := 0
	for i < total {
		j := i + opts.MaxWords
		if j > total {
			j = total
		}
		group := tokens[i:j]
		// Duration by token share of the segment, not real timing; cues
		// touch end-to-start across the segment.
		frac := float64(len(group)) / float64(total)
		end := start + segDur*frac
		out = append(out, types.Cue{Start: start, End: end, Text: layoutCue(group, j >= total)})
		start = end
		i = j
	}
	return out
}

// layoutCue renders a token group as one or two display lines. Groups of
// three or more tokens split two tokens on the first line with the rest
// below; the first line is never segment-final, so its trailing
// punctuation is always stripped.
func layoutCue(tokens []string, isLastInSegment bool) string {
	if len(tokens) >= 3 {
		top := cleanChunkText(tokens[:2], false)
		bottom := cleanChunkText(tokens[2:], isLastInSegment)
		return strings.TrimSpace(top + "\n" + bottom)
	}
	return cleanChunkText(tokens, isLastInSegment)
}

const quoteCutset = "\"'“”‘’"

func punctOnly(s string) bool {
	for _, r := range s {
		if !isClosingPunct(r) {
			return false
		}
	}
	return s != ""
}

func isClosingPunct(r rune) bool {
	switch r {
	case ',', '.', ';', ':', '!', '?', '…':
		return true
	}
	return false
}

func cleanChunkText(tokens []string, isLastInSegment bool) string {
	var b strings.Builder
	for _, t := range tokens {
		t = strings.Trim(strings.TrimSpace(t), quoteCutset)
		if t == "" {
			continue
		}
		// Punctuation-only tokens glue to the word before them; ASR
		// occasionally emits "!" or "?" as separate tokens.
		if b.Len() > 0 && !punctOnly(t) {
			b.WriteByte(' ')
		}
		b.WriteString(t)
	}
	text := strings.Join(strings.Fields(b.String()), " ")
	if isLastInSegment {
		return text
	}
	for {
		r := []rune(text)
		if len(r) == 0 || !isClosingPunct(r[len(r)-1]) {
			return text
		}
		text = strings.TrimRight(string(r[:len(r)-1]), " \t")
	}
}
