package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

var templateFuncs = template.FuncMap{
	"ago": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return humanize.Time(*t)
	},
	"since":  humanize.Time,
	"value":  formatValue,
	"fields": sortedFields,
	"comma":  func(n int) string { return humanize.Comma(int64(n)) },
}

const entityTemplate = `
=== {{.Type}} {{.Entity.ID}} ===

Workspace: {{.Entity.WorkspaceID}}
Version:   {{.Entity.Version}}
Created:   {{since .Entity.CreatedAt}}
Updated:   {{since .Entity.UpdatedAt}}
{{- if .Entity.DeletedAt }}
Deleted:   {{ago .Entity.DeletedAt}}
{{- end}}
{{- with fields .Entity.Fields }}

Fields:
{{- range . }}
  {{.Name}}: {{value .Value}}
{{- end}}
{{- end}}
`

const statusTemplate = `
=== Sync Status ===

Client:    {{.ClientID}}
Online:    {{if .State.IsOnline}}yes{{else}}no{{end}}
Last sync: {{ago .State.LastSyncTime}}
Pending:   {{comma .State.PendingChanges}} change(s)
Failed:    {{comma .State.FailedChanges}} change(s)
Conflicts: {{.Conflicts}}
Queue:     {{.Queue.Pending}} pending, {{.Queue.Failed}} failed of {{.Queue.MaxSize}}
`

var (
	entityTmpl = template.Must(template.New("entity").Funcs(templateFuncs).Parse(entityTemplate))
	statusTmpl = template.Must(template.New("status").Funcs(templateFuncs).Parse(statusTemplate))
)

type field struct {
	Value any
	Name  string
}

func sortedFields(fields map[string]any) []field {
	result := make([]field, 0, len(fields))
	for name, value := range fields {
		result = append(result, field{Name: name, Value: value})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// formatValue prints strings as is and everything else as JSON.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func render(w io.Writer, tmpl *template.Template, data any) error {
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return nil
}
