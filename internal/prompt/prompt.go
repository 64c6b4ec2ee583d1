// Package prompt renders the text sent to the generation service.
package prompt

import (
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguage is used when no target language is configured.
const DefaultLanguage = "English"

// Builder renders prompts from a parsed template. Rendering is pure: the same
// diff and language always produce byte-identical output.
type Builder struct {
	name string
	tmpl *template.Template
}

var defaultBuilder = mustDefaultBuilder()

func mustDefaultBuilder() *Builder {
	b, err := NewBuilder(DefaultTemplateName)
	if err != nil {
		panic(err)
	}
	return b
}

// NewBuilder loads the named built-in template or a template file.
func NewBuilder(nameOrPath string) (*Builder, error) {
	text, err := GetPromptTemplate(nameOrPath)
	if err != nil {
		return nil, err
	}
	if nameOrPath == "" {
		nameOrPath = DefaultTemplateName
	}
	tmpl, err := parseTemplate(nameOrPath, text)
	if err != nil {
		return nil, err
	}
	return &Builder{name: nameOrPath, tmpl: tmpl}, nil
}

// Name returns the template name or path the builder was created from.
func (b *Builder) Name() string { return b.name }

// Build renders the prompt. The diff is embedded verbatim.
func (b *Builder) Build(diff, targetLanguage string) (string, error) {
	return renderTemplate(b.tmpl, TemplateData{Language: targetLanguage, Diff: diff})
}

// Build renders the built-in prompt for diff in targetLanguage.
func Build(diff, targetLanguage string) string {
	out, err := defaultBuilder.Build(diff, targetLanguage)
	if err != nil {
		// The built-in template only interpolates two strings.
		panic(err)
	}
	return out
}

// NormalizeLanguage turns a BCP 47 tag such as "pt-BR" into its English
// display name ("Brazilian Portuguese"). Anything that is not a short tag is
// returned trimmed but otherwise unchanged; empty input yields DefaultLanguage.
func NormalizeLanguage(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLanguage
	}
	if !looksLikeTag(s) {
		return s
	}

	tag, err := language.Parse(s)
	if err != nil || tag == language.Und {
		return s
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return s
}

func looksLikeTag(s string) bool {
	if strings.ContainsAny(s, " ") {
		return false
	}
	return len(s) <= 3 || strings.ContainsAny(s, "-_")
}
