package source

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkSize is the maximum unit length in characters.
const DefaultChunkSize = 1000

var blankLine = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// Paragraphs splits text on blank lines and collapses whitespace inside
// each paragraph.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Chunk packs the paragraphs of text into chunks of at most size
// characters. Paragraph breaks are kept as blank lines. A paragraph longer
// than size is split on sentence boundaries, and a sentence longer than
// size on whitespace.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}
	add := func(piece, sep string) {
		n := utf8.RuneCountInString(piece)
		if curLen > 0 && curLen+len(sep)+n > size {
			flush()
		}
		if curLen > 0 {
			cur.WriteString(sep)
			curLen += len(sep)
		}
		cur.WriteString(piece)
		curLen += n
	}

	for _, para := range Paragraphs(text) {
		if utf8.RuneCountInString(para) <= size {
			add(para, "\n\n")
			continue
		}
		sep := "\n\n"
		for _, sentence := range SplitSentences(para) {
			for _, piece := range hardSplit(sentence, size) {
				add(piece, sep)
				sep = " "
			}
		}
	}
	flush()
	return chunks
}

// SplitSentences splits a paragraph after sentence-ending punctuation
// that is followed by whitespace.
func SplitSentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		end := i + 1
		for end < len(runes) && isCloser(runes[end]) {
			end++
		}
		if end < len(runes) && !unicode.IsSpace(runes[end]) && !isWideTerminal(runes[i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
		i = end - 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return isWideTerminal(r)
}

func isWideTerminal(r rune) bool {
	switch r {
	case '。', '！', '？':
		return true
	}
	return false
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '」', '』', '.', '!', '?':
		return true
	}
	return false
}

// hardSplit breaks s into pieces of at most size runes, preferring the
// last whitespace before the limit.
func hardSplit(s string, size int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > size {
		cut := size
		for i := size; i > size/2; i-- {
			if unicode.IsSpace(runes[i]) {
				cut = i
				break
			}
		}
		if piece := strings.TrimSpace(string(runes[:cut])); piece != "" {
			out = append(out, piece)
		}
		runes = []rune(strings.TrimLeftFunc(string(runes[cut:]), unicode.IsSpace))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
