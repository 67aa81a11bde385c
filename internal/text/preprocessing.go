// Package text prepares meditation scripts for narration by the synthesis tool.
//
// Piper reads sentences line by line from standard input, so the line
// structure of a script is kept while the punctuation inside each line is
// folded into forms the phonemizer handles predictably.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for narration cleanup.
const (
	ellipsisRegexPattern   = `\.{2,}|…`
	whitespaceRegexPattern = `[ \t\f\v]+`
	spaceBeforePunctPatten = ` +([.,!?;:])`
)

// Punctuation and formatting constants.
const (
	emDash         = "—"
	enDash         = "–"
	figureDash     = "‒"
	sentenceStop   = "."
	carriageReturn = "\r\n"
	lineFeed       = "\n"
)

// Preprocessor normalizes script text for narration.
type Preprocessor struct {
	ellipsisPattern    *regexp.Regexp
	whitespacePattern  *regexp.Regexp
	spaceBeforePattern *regexp.Regexp
	// Efficient replacer for common abbreviations and typographic marks.
	abbreviationReplacer *strings.Replacer
	typographyReplacer   *strings.Replacer
}

// NewPreprocessor creates a new text preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
	}

	return &Preprocessor{
		ellipsisPattern:      regexp.MustCompile(ellipsisRegexPattern),
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		spaceBeforePattern:   regexp.MustCompile(spaceBeforePunctPatten),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
		typographyReplacer: strings.NewReplacer(
			emDash, ", ",
			enDash, "-",
			figureDash, "-",
			"“", `"`, "”", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// PrepareNarration returns the text the synthesis tool should read.
//
// Trailing ellipses become sentence stops so Piper inserts its configured
// sentence silence instead of reading them as a run-on. Blank lines between
// paragraphs are collapsed to one. The result ends with sentence punctuation.
func (p *Preprocessor) PrepareNarration(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	text = strings.ReplaceAll(text, carriageReturn, lineFeed)
	text = p.abbreviationReplacer.Replace(text)
	text = p.typographyReplacer.Replace(text)
	text = p.ellipsisPattern.ReplaceAllString(text, sentenceStop)

	lines := strings.Split(text, lineFeed)
	cleaned := make([]string, 0, len(lines))
	previousBlank := true

	for _, line := range lines {
		line = p.normalizeLine(line)

		if line == "" {
			if !previousBlank {
				cleaned = append(cleaned, "")
			}

			previousBlank = true

			continue
		}

		cleaned = append(cleaned, line)
		previousBlank = false
	}

	result := strings.TrimSpace(strings.Join(cleaned, lineFeed))

	return ensureProperSentenceEnding(result)
}

// normalizeLine collapses whitespace inside a single line.
func (p *Preprocessor) normalizeLine(line string) string {
	line = p.whitespacePattern.ReplaceAllString(line, " ")
	line = p.spaceBeforePattern.ReplaceAllString(line, "$1")

	return strings.TrimSpace(line)
}

// ensureProperSentenceEnding ensures the text ends with sentence punctuation.
func ensureProperSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)

	switch lastChar {
	case '.', '!', '?', '"', '\'':
		return text
	case ',', ';', ':', '-':
		return strings.TrimRightFunc(text, isClauseMark) + sentenceStop
	default:
		return text + sentenceStop
	}
}

func isClauseMark(r rune) bool {
	return r == ',' || r == ';' || r == ':' || r == '-' || unicode.IsSpace(r)
}
