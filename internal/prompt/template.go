package prompt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateName selects the built-in template.
const DefaultTemplateName = "default"

// Template is the on-disk YAML form of a custom prompt template.
type Template struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

// TemplateData is the value a template is executed against.
type TemplateData struct {
	Language string
	Diff     string
}

var errMissingDiff = errors.New("template must reference {{.Diff}}")

var builtinTemplates = map[string]string{
	DefaultTemplateName: `Act as a commit message generator.
Analyze the git diff below and generate a SINGLE, complete line of commit message following the Conventional Commits specification, in the format "type: description" (e.g., feat, fix, chore, docs).
The message must be concise, objective, and in {{.Language}}.
Do not truncate the sentence. Do not use quotes or markdown code blocks.

Diff:
{{.Diff}}`,
}

// GetPromptTemplate resolves a template by built-in name or by file path.
// A YAML file must carry a "template" field; any other file is used as raw template text.
func GetPromptTemplate(nameOrPath string) (string, error) {
	if nameOrPath == "" {
		nameOrPath = DefaultTemplateName
	}
	if text, ok := builtinTemplates[nameOrPath]; ok {
		return text, nil
	}

	content, err := os.ReadFile(nameOrPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt template not found: %s", nameOrPath)
		}
		return "", fmt.Errorf("unable to read template file %s: %w", nameOrPath, err)
	}

	var tpl Template
	if err := yaml.Unmarshal(content, &tpl); err != nil || tpl.Template == "" {
		return string(content), nil
	}
	return tpl.Template, nil
}

func parseTemplate(name, text string) (*template.Template, error) {
	if !strings.Contains(text, ".Diff") {
		return nil, fmt.Errorf("%s: %w", name, errMissingDiff)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("template parsing error: %w", err)
	}
	return tmpl, nil
}

func renderTemplate(tmpl *template.Template, data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template rendering error: %w", err)
	}
	return buf.String(), nil
}
