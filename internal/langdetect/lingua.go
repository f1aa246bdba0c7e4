// Package langdetect guesses the source language of a document.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// DefaultSampleSize is the number of characters sampled by DetectSample.
const DefaultSampleSize = 2000

const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// DetectISO6391 returns the ISO 639-1 code of text's language, or "" when
// the text is too short or the language cannot be determined.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// DetectSample concatenates texts in order until about size characters
// are collected and detects the language of the sample.
func DetectSample(texts []string, size int) string {
	if size <= 0 {
		size = DefaultSampleSize
	}
	var b strings.Builder
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(t)
		if b.Len() >= size {
			break
		}
	}
	sample := b.String()
	if len(sample) > size {
		// Cut on a rune boundary.
		cut := size
		for cut > 0 && !utf8RuneStart(sample[cut]) {
			cut--
		}
		sample = sample[:cut]
	}
	return DetectISO6391(sample)
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			Build()
	})
	return detector
}
