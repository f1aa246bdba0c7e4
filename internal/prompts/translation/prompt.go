package translation

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/jackzampolin/folio/internal/prompts"
)

//go:embed user.tmpl
var userPromptTmpl string

// UserPromptKey is the hierarchical key for the translation prompt.
const UserPromptKey = "translate.user"

// RegisterPrompts registers the translation prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserPromptKey,
		Text:        userPromptTmpl,
		Description: "Translation prompt - instructs the model to output only the translated text",
	})
}

// Data is the template input for the translation prompt.
type Data struct {
	Target string
	Source string
	Text   string
}

// Builder renders translation prompts for a fixed language pair.
type Builder struct {
	Target string
	Source string

	tmpl *template.Template
	raw  string
}

// NewBuilder resolves the translation prompt from r (embedded default or
// override) and validates it. Language codes are expanded to English names.
func NewBuilder(r *prompts.Resolver, target, source string) (*Builder, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("target language is required")
	}

	text := userPromptTmpl
	if r != nil {
		resolved, err := r.Resolve(UserPromptKey)
		if err != nil {
			return nil, err
		}
		text = resolved.Text
	}
	text = strings.TrimRight(text, "\n")

	tmpl, err := prompts.Parse(UserPromptKey, text)
	if err != nil {
		return nil, err
	}

	b := &Builder{
		Target: LanguageName(target),
		Source: LanguageName(source),
		tmpl:   tmpl,
		raw:    text,
	}
	if _, err := prompts.Render(tmpl, Data{Target: b.Target, Source: b.Source}); err != nil {
		return nil, err
	}
	return b, nil
}

// DefaultBuilder returns a builder over the embedded prompt.
func DefaultBuilder(target, source string) *Builder {
	b, err := NewBuilder(nil, target, source)
	if err != nil {
		panic(err)
	}
	return b
}

// Build renders the prompt for text.
func (b *Builder) Build(text string) string {
	out, err := prompts.Render(b.tmpl, Data{Target: b.Target, Source: b.Source, Text: text})
	if err != nil {
		// Fallback to raw template on error
		return b.raw + "\n" + text
	}
	return out
}
