package notify

import (
	"bytes"
	"errors"
	"text/template"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = `[Dispute {{.EventLabel}}]
Agreement: {{.AgreementID}}
{{- if .PropertyID }}
Property: {{.PropertyID}}
{{- end }}
{{- if .RaisedBy }}
Raised By: {{.RaisedBy}}
{{- end }}
{{- if .Outcome }}
Outcome: {{.Outcome}}
{{- end }}
Amount: {{.Amount}}
Time: {{.OccurredAt}}
{{- if .CorrelationID }}
Correlation: {{.CorrelationID}}
{{- end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Event         string
	EventLabel    string
	AgreementID   string
	PropertyID    string
	RaisedBy      string
	Outcome       string
	Amount        string
	OccurredAt    string
	CorrelationID string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("dispute-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("notify template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
