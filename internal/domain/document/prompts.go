package document

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// summaryPrompt is the generation recipe for PDF abstracts: the minimum
// extractable text length worth sending, the sampling parameters and the
// prompt template with a {{content}} placeholder.
type summaryPrompt struct {
	MinTextChars int     `yaml:"min_text_chars"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	Template     string  `yaml:"template"`
}

type promptSet struct {
	Summary summaryPrompt `yaml:"summary"`
}

func loadPrompts() (*promptSet, error) {
	var p promptSet
	if err := yaml.Unmarshal(promptsYAML, &p); err != nil {
		return nil, fmt.Errorf("document: parse embedded prompts: %w", err)
	}
	if p.Summary.Template == "" {
		return nil, fmt.Errorf("document: embedded prompts missing summary template")
	}
	return &p, nil
}

// render substitutes the document text into the template.
func (p summaryPrompt) render(content string) string {
	return strings.ReplaceAll(p.Template, "{{content}}", content)
}
