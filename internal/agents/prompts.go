package agents

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// Prompts is the system prompt catalog.
type Prompts struct {
	CallLog       string `yaml:"call_log"`
	Report        string `yaml:"report"`
	Form          string `yaml:"form"`
	Questionnaire string `yaml:"questionnaire"`
	Redaction     string `yaml:"redaction"`
	Chat          string `yaml:"chat"`
}

// DefaultPrompts returns the embedded catalog.
func DefaultPrompts() (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPrompts, &p); err != nil {
		return Prompts{}, fmt.Errorf("parse embedded prompts: %w", err)
	}
	return p, nil
}

// LoadPrompts returns the embedded catalog with any non-empty entries from path
// layered on top. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p, err := DefaultPrompts()
	if err != nil {
		return Prompts{}, err
	}
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("read prompts file: %w", err)
	}
	var override Prompts
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Prompts{}, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	p.merge(override)
	return p, nil
}

func (p *Prompts) merge(o Prompts) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.CallLog, o.CallLog)
	set(&p.Report, o.Report)
	set(&p.Form, o.Form)
	set(&p.Questionnaire, o.Questionnaire)
	set(&p.Redaction, o.Redaction)
	set(&p.Chat, o.Chat)
}
