package caption

import (
	"strings"
	"unicode/utf8"
)

// FillerLine pads a short chunk up to the configured line count.
// It is a no-break space so neither WebVTT nor SRT readers see an empty line.
const FillerLine = "\u00a0"

// Chunk is a bounded piece of an utterance's text.
// Begin and end are provisional until the chunk passes through the Engine.
type Chunk struct {
	Text       string
	Runes      int
	BeginTicks int64
	EndTicks   int64
}

type line struct {
	text  string
	runes int
}

// Split wraps text into lines of at most maxLineLength characters, breaking at
// word boundaries, and groups the lines into chunks of at most maxLines lines.
//
// Lines are filled greedily, so a line only closes once a later word fails to
// fit. Growing the text therefore changes nothing but the last chunk: for any
// two calls on a growing utterance, every chunk before the earlier call's last
// one is identical.
//
// The last chunk is padded with FillerLine up to maxLines.
func Split(text string, maxLineLength, maxLines int) []Chunk {
	if maxLines < 1 {
		maxLines = 1
	}
	lines := wrap(text, maxLineLength)
	if len(lines) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (len(lines)+maxLines-1)/maxLines)
	for start := 0; start < len(lines); start += maxLines {
		end := min(start+maxLines, len(lines))
		texts := make([]string, 0, maxLines)
		runes := 0
		for _, l := range lines[start:end] {
			texts = append(texts, l.text)
			runes += l.runes
		}
		if end == len(lines) {
			for len(texts) < maxLines {
				texts = append(texts, FillerLine)
			}
		}
		chunks = append(chunks, Chunk{Text: strings.Join(texts, "\n"), Runes: runes})
	}
	return chunks
}

// Whole returns text as a single unwrapped chunk, or nothing for blank text.
func Whole(text string) []Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return []Chunk{{Text: text, Runes: utf8.RuneCountInString(text)}}
}

func wrap(text string, maxLineLength int) []line {
	var (
		lines   []line
		current strings.Builder
		runes   int
	)
	flush := func() {
		if runes == 0 {
			return
		}
		lines = append(lines, line{text: current.String(), runes: runes})
		current.Reset()
		runes = 0
	}

	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)

		// Words that cannot fit on any line are hard-split at the budget.
		for n > maxLineLength {
			flush()
			head, tail := splitRunes(word, maxLineLength)
			lines = append(lines, line{text: head, runes: maxLineLength})
			word = tail
			n -= maxLineLength
		}
		if n == 0 {
			continue
		}

		switch {
		case runes == 0:
			current.WriteString(word)
			runes = n
		case runes+1+n <= maxLineLength:
			current.WriteByte(' ')
			current.WriteString(word)
			runes += 1 + n
		default:
			flush()
			current.WriteString(word)
			runes = n
		}
	}
	flush()
	return lines
}

func splitRunes(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
