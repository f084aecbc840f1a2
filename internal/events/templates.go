package events

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// defaultTemplates are the event titles shown to operators. Step titles are
// prefixed with the run-local timestamp.
var defaultTemplates = map[EventReason]string{
	ReasonStepSucceeded: `{{.Timestamp}} {{.Description}} success...`,
	ReasonStepFailed:    `{{.Timestamp}} {{.Description}} failed{{if .Error}}: {{.Error | trim}}{{end}}`,

	ReasonRestartSucceeded: `Successfully Restart workspace {{.Name}}.`,
	ReasonRestartFailed:    `Restart workspace {{.Name}} failed{{if .Error}}: {{.Error | trim}}{{end}}`,

	ReasonTransitionSucceeded: `Successfully {{.Operation}} {{.Kind}} {{.Name}}{{if .Duration}} in {{.Duration}}{{end}}.`,
	ReasonTransitionFailed:    `{{.Error | trim}}`,
}

// MessageTemplateEngine renders event titles from text/template sources.
// Templates have the sprig function map available.
type MessageTemplateEngine struct {
	mu        sync.RWMutex
	sources   map[EventReason]string
	templates map[EventReason]*template.Template
}

// NewMessageTemplateEngine creates an engine with the default templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	e := &MessageTemplateEngine{
		sources:   make(map[EventReason]string, len(defaultTemplates)),
		templates: make(map[EventReason]*template.Template, len(defaultTemplates)),
	}
	for reason, src := range defaultTemplates {
		if err := e.SetTemplate(reason, src); err != nil {
			panic(fmt.Sprintf("invalid default template for %s: %v", reason, err))
		}
	}
	return e
}

// Render generates the title of an event. Unknown reasons and templates
// that fail to execute get a generic title.
func (e *MessageTemplateEngine) Render(reason EventReason, data EventData) string {
	e.mu.RLock()
	tmpl, ok := e.templates[reason]
	e.mu.RUnlock()
	if !ok {
		return fallbackTitle(reason, data)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fallbackTitle(reason, data)
	}
	return b.String()
}

// SetTemplate replaces the template of a reason. The previous template is
// kept when src does not parse.
func (e *MessageTemplateEngine) SetTemplate(reason EventReason, src string) error {
	tmpl, err := template.New(string(reason)).Funcs(sprig.TxtFuncMap()).Option("missingkey=zero").Parse(src)
	if err != nil {
		return fmt.Errorf("failed to parse template for %s: %w", reason, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sources[reason] = src
	e.templates[reason] = tmpl
	return nil
}

// GetTemplate returns the template source of a reason.
func (e *MessageTemplateEngine) GetTemplate(reason EventReason) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	src, ok := e.sources[reason]
	return src, ok
}

func fallbackTitle(reason EventReason, data EventData) string {
	return fmt.Sprintf("Event: %s for %s %s", reason, data.Kind, data.Name)
}
