package source

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParagraphs(t *testing.T) {
	text := "First line\nwrapped here.\n\n  \n\nSecond\tparagraph.\r\n\r\nThird."
	want := []string{"First line wrapped here.", "Second paragraph.", "Third."}
	if got := Paragraphs(text); !reflect.DeepEqual(got, want) {
		t.Errorf("Paragraphs() = %q, want %q", got, want)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"basic", "Hello world. How are you? Fine!", []string{"Hello world.", "How are you?", "Fine!"}},
		{"decimal", "Pi is 3.14 today. Yes.", []string{"Pi is 3.14 today.", "Yes."}},
		{"quote closer", `He said "Stop." Then left.`, []string{`He said "Stop."`, "Then left."}},
		{"ellipsis", "Wait... what?", []string{"Wait...", "what?"}},
		{"cjk", "今日は晴れです。明日は雨です。", []string{"今日は晴れです。", "明日は雨です。"}},
		{"no terminal", "no punctuation here", []string{"no punctuation here"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitSentences(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitSentences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunk(t *testing.T) {
	t.Run("small paragraphs are packed", func(t *testing.T) {
		got := Chunk("One.\n\nTwo.\n\nThree.", 12)
		want := []string{"One.\n\nTwo.", "Three."}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Chunk() = %q, want %q", got, want)
		}
	})

	t.Run("long paragraph splits on sentences", func(t *testing.T) {
		para := strings.Repeat("This is a sentence. ", 10)
		got := Chunk(para, 45)
		if len(got) < 4 {
			t.Fatalf("Chunk() produced %d chunks: %q", len(got), got)
		}
		for _, c := range got {
			if utf8.RuneCountInString(c) > 45 {
				t.Errorf("chunk exceeds size: %q", c)
			}
			if !strings.HasSuffix(c, ".") {
				t.Errorf("chunk does not end on a sentence: %q", c)
			}
		}
	})

	t.Run("oversized sentence is hard split", func(t *testing.T) {
		long := strings.Repeat("word ", 50)
		for _, c := range Chunk(long, 30) {
			if utf8.RuneCountInString(c) > 30 {
				t.Errorf("chunk exceeds size: %q", c)
			}
		}
	})

	t.Run("no text is lost", func(t *testing.T) {
		text := "Alpha beta. Gamma delta!\n\nEpsilon zeta? Eta theta.\n\n" + strings.Repeat("Iota kappa lambda. ", 20)
		got := Chunk(text, 60)
		joined := strings.Join(strings.Fields(strings.Join(got, " ")), " ")
		want := strings.Join(strings.Fields(text), " ")
		if joined != want {
			t.Errorf("chunks lost text:\n%q\n%q", joined, want)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := Chunk(" \n\n ", 100); len(got) != 0 {
			t.Errorf("Chunk() = %q, want none", got)
		}
	})
}
