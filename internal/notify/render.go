package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// defaultTemplates are the plain-text bodies shipped with the service.
// Content design belongs to the templating collaborator; these exist so
// the core works out of the box.
var defaultTemplates = map[string]string{
	"welcome": "Hi {{.Name}},\n\n" +
		"Welcome to Jobdeck! Set up a job alert and we'll email you when matching roles are posted.\n",
	"status_update": "Hi {{.Name}},\n\n" +
		"Your application moved from {{.OldStatus}} to {{.NewStatus}}.\n",
	"job_alert": "Hi {{.Name}},\n\n" +
		"New jobs matching your alert:\n" +
		"{{range .Listings}}  - {{.Title}} at {{.Company}} ({{.Location}})\n{{end}}",
	"recommendation": "Hi {{.Name}},\n\n" +
		"Roles we think fit you:\n" +
		"{{range .Listings}}  - {{.Title}} at {{.Company}} ({{.Location}})\n{{end}}",
	"follow_up": "Hi {{.Name}},\n\n" +
		"Your application is still {{.Status}}. Anything you'd like to add?\n",
	"digest": "Hi {{.Name}},\n\n" +
		"Here's your weekly Jobdeck digest.\n",
}

// TemplateRenderer renders notification bodies with text/template.
// Templates are parsed once at construction; Render is safe for
// concurrent use.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses the default templates plus any overrides
func NewTemplateRenderer(overrides map[string]string) (*TemplateRenderer, error) {
	root := template.New("notifications")
	for name, text := range defaultTemplates {
		if _, ok := overrides[name]; ok {
			continue
		}
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
	}
	for name, text := range overrides {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
	}
	return &TemplateRenderer{templates: root}, nil
}

// Render executes the named template
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	t := r.templates.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}
