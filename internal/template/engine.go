// Package template renders the descriptions written to remote test plans and
// test cases. Templates use text/template syntax with the sprig function set.
package template

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	// DefaultCaseDescription is used when no case template is configured.
	DefaultCaseDescription = `{{ if .Description }}{{ .Description }}{{ else }}Created by automation script - Version {{ .Version }}{{ end }}`

	// DefaultPlanDescription is used when no plan template is configured.
	DefaultPlanDescription = `{{ .Project }} test plan v{{ .Version }} ({{ .ScenarioCount }} {{ if eq .ScenarioCount 1 }}scenario{{ else }}scenarios{{ end }}, imported {{ now | date "2006-01-02" }})`
)

// Engine parses templates once and renders them against a context map.
type Engine struct {
	mu     sync.RWMutex
	parsed map[string]*template.Template
}

// New creates a new template engine
func New() *Engine {
	return &Engine{parsed: make(map[string]*template.Template)}
}

// Validate checks that text parses.
func (e *Engine) Validate(text string) error {
	_, err := e.lookup(text)
	return err
}

// Render executes text against context. Referencing a key that is not in the
// context is an error.
func (e *Engine) Render(text string, context map[string]interface{}) (string, error) {
	tmpl, err := e.lookup(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", fmt.Errorf("rendering template: %w", err)
	}
	return buf.String(), nil
}

func (e *Engine) lookup(text string) (*template.Template, error) {
	e.mu.RLock()
	tmpl, ok := e.parsed[text]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New("description").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}

	e.mu.Lock()
	e.parsed[text] = tmpl
	e.mu.Unlock()
	return tmpl, nil
}
