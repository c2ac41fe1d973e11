package extractors

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRegex = regexp.MustCompile(`(\w)-\n(\w)`)
	spaceRunRegex    = regexp.MustCompile(`[ \t]+`)
	blankLinesRegex  = regexp.MustCompile(`\n{3,}`)
)

var typographicReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
)

// CleanText normalizes extracted text: line endings, hyphenation breaks,
// whitespace runs, and typographic punctuation.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	// Normalize line endings
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = typographicReplacer.Replace(text)

	// Repair words hyphenated across line breaks
	text = hyphenBreakRegex.ReplaceAllString(text, "$1$2")

	// Collapse space runs, then trim trailing spaces per line
	text = spaceRunRegex.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")

	// Collapse excess blank lines
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// JoinWrappedLines merges hard-wrapped lines inside paragraphs while keeping
// paragraph breaks. Page converters wrap prose at a fixed column, which would
// otherwise leak mid-sentence newlines into chunks.
func JoinWrappedLines(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	for i, paragraph := range paragraphs {
		lines := strings.Split(paragraph, "\n")
		if len(lines) < 2 {
			continue
		}
		joined := make([]string, 0, len(lines))
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if len(joined) > 0 && !endsSentence(joined[len(joined)-1]) {
				joined[len(joined)-1] = joined[len(joined)-1] + " " + trimmed
			} else {
				joined = append(joined, trimmed)
			}
		}
		paragraphs[i] = strings.Join(joined, "\n")
	}
	return strings.Join(paragraphs, "\n\n")
}

func endsSentence(line string) bool {
	line = strings.TrimRight(line, " ")
	if line == "" {
		return true
	}
	switch line[len(line)-1] {
	case '.', '!', '?', ':', ';':
		return true
	}
	return false
}
