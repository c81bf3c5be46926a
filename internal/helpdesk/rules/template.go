package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"erp-helpdesk-workers/internal/models"
)

var templateFieldRe = regexp.MustCompile(`\.([A-Za-z_][A-Za-z0-9_]*)`)

type messageTemplate struct {
	tmpl   *template.Template
	fields []string
}

// compileTemplate parses the rule's message for lang. Urdu falls back to English when the
// rule has no Urdu template. Record fields are referenced as {{.field}}.
func compileTemplate(rule models.ProactiveRule, lang models.Language) (*messageTemplate, error) {
	text := rule.Template(lang)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: rule has no message", ErrTemplate)
	}
	t, err := template.New(fmt.Sprintf("rule-%d", rule.ID)).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return &messageTemplate{tmpl: t, fields: referencedFields(rule)}, nil
}

// referencedFields collects the fields used by either language so cached matches can
// render both.
func referencedFields(rule models.ProactiveRule) []string {
	seen := map[string]struct{}{}
	for _, text := range []string{rule.TemplateEN, rule.TemplateUR} {
		for _, action := range templateActions(text) {
			for _, m := range templateFieldRe.FindAllStringSubmatch(action, -1) {
				seen[m[1]] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func templateActions(text string) []string {
	var actions []string
	for {
		start := strings.Index(text, "{{")
		if start < 0 {
			return actions
		}
		end := strings.Index(text[start:], "}}")
		if end < 0 {
			return actions
		}
		actions = append(actions, text[start+2:start+end])
		text = text[start+end+2:]
	}
}

func (m *messageTemplate) render(match Match) (string, error) {
	data := make(map[string]string, len(match.Data)+1)
	for k, v := range match.Data {
		data[k] = v
	}
	if _, ok := data["name"]; !ok {
		data["name"] = match.Name
	}
	var b strings.Builder
	if err := m.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplate, err)
	}
	return strings.TrimSpace(b.String()), nil
}
