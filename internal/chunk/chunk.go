// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunk joins recognized page texts and splits the result into
// bounded, ordered segments for structuring.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Join concatenates texts with sep between each pair.
func Join(texts []string, sep string) string {
	return strings.Join(texts, sep)
}

// Split slices text into pieces of at most maxChars characters (runes).
// When a cut would land inside a word it moves back to just after the
// nearest preceding whitespace; a word longer than maxChars is cut at the
// character limit. Cuts never land inside a multi-byte character, and the
// pieces concatenated in order equal text exactly.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = types.DefaultMaxChunkChars
	}
	var pieces []string
	for len(text) > 0 {
		end, whole := runeOffset(text, maxChars)
		if whole {
			pieces = append(pieces, text)
			break
		}
		cut := end
		if insideWord(text, end) {
			if ws := lastSpaceEnd(text[:end]); ws > 0 {
				cut = ws
			}
		}
		pieces = append(pieces, text[:cut])
		text = text[cut:]
	}
	return pieces
}

// Chunk joins the successful results in rank order and splits them into
// TextChunks indexed from zero.
func Chunk(results []types.RecognitionResult, cfg types.ChunkingConfig) []types.TextChunk {
	sep := cfg.Separator
	if sep == "" {
		sep = types.DefaultSeparator
	}
	var texts []string
	for _, r := range results {
		if r.OK {
			texts = append(texts, r.Text)
		}
	}
	joined := Join(texts, sep)
	var chunks []types.TextChunk
	for i, piece := range Split(joined, cfg.MaxChunkChars) {
		chunks = append(chunks, types.TextChunk{Index: i, Text: piece})
	}
	return chunks
}

// runeOffset returns the byte offset just past the first n runes of s, and
// whether s has n runes or fewer.
func runeOffset(s string, n int) (int, bool) {
	count := 0
	for i := range s {
		if count == n {
			return i, false
		}
		count++
	}
	return len(s), true
}

// insideWord reports whether the byte offset at sits between two
// non-space runes.
func insideWord(s string, at int) bool {
	before, _ := utf8.DecodeLastRuneInString(s[:at])
	after, _ := utf8.DecodeRuneInString(s[at:])
	return !unicode.IsSpace(before) && !unicode.IsSpace(after)
}

// lastSpaceEnd returns the offset just past the last whitespace rune in s,
// or 0 if s contains none.
func lastSpaceEnd(s string) int {
	for i := len(s); i > 0; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if unicode.IsSpace(r) {
			return i
		}
		i -= size
	}
	return 0
}
