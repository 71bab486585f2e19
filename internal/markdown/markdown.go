package markdown

import (
	"strings"
	"unicode/utf8"
)

// Taken from https://core.telegram.org/bots/api#markdownv2-style.
const mdV2SpecialChars = `\._[](){}#|!+-=*~>` + "`"

func EscapeV2(input string) string {
	lookup := mdV2SpecialCharLookup()
	charsToEscape := 0

	for i := range input {
		if lookup[input[i]] {
			charsToEscape++
		}
	}
	if charsToEscape == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input) + charsToEscape)

	for i := range input {
		c := input[i]
		if lookup[c] {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}

	return b.String()
}

func mdV2SpecialCharLookup() [256]bool {
	var m [256]bool
	for _, c := range []byte(mdV2SpecialChars) {
		m[c] = true
	}
	return m
}

// SplitMessages packs blocks into messages no longer than limit bytes. The
// first message starts with header, the following ones with
// continuationHeader. Blocks that do not fit into an empty message are cut
// at line boundaries.
func SplitMessages(header string, continuationHeader string, blocks []string, limit int) []string {
	var (
		messages []string
		current  strings.Builder
	)

	current.WriteString(header)
	written := false

	flush := func() {
		if written {
			messages = append(messages, current.String())
		}
		current.Reset()
		current.WriteString(continuationHeader)
		written = false
	}

	for _, block := range blocks {
		if block == "" {
			continue
		}

		if current.Len()+len(block) > limit && written {
			flush()
		}

		if current.Len()+len(block) <= limit {
			current.WriteString(block)
			written = true

			continue
		}

		for _, piece := range cutBlock(block, limit-len(continuationHeader)) {
			if current.Len()+len(piece) > limit {
				flush()
			}
			current.WriteString(piece)
			written = true
		}
	}

	if written {
		messages = append(messages, current.String())
	}

	return messages
}

func cutBlock(block string, size int) []string {
	if size <= 0 {
		return []string{block}
	}

	var pieces []string
	for _, line := range strings.SplitAfter(block, "\n") {
		for len(line) > size {
			end := size
			for end > 0 && !utf8.RuneStart(line[end]) {
				end--
			}
			// An odd run of backslashes before the cut ends in an escape
			// whose character would land in the next piece.
			if backslashesBefore(line, end)%2 == 1 {
				end--
			}
			if end == 0 {
				end = size
			}

			pieces = append(pieces, line[:end])
			line = line[end:]
		}

		if line != "" {
			pieces = append(pieces, line)
		}
	}

	return pieces
}

func backslashesBefore(s string, end int) int {
	n := 0
	for i := end - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}

	return n
}
