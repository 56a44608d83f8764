package orchestrate

import (
	"strings"
	"text/template"

	"github.com/atrium-run/atrium/internal/core"
)

// PromptBuilder composes the prompt string handed to the agent engine for a
// task. The prompt template engine proper is an external collaborator per
// spec §1 ("the core consumes a built prompt string"); this is the minimal
// default so the executor has something to pass when no richer builder is
// configured, grounded on the text/template approach the teacher's
// internal/service/prompt.go embeds.
type PromptBuilder interface {
	Build(task *core.Task) (string, error)
}

var defaultPromptTemplate = template.Must(template.New("task-prompt").Parse(
	strings.TrimSpace(`
# Task {{.ID}}: {{.Name}}

{{if .Description}}{{.Description}}

{{end -}}
{{if .Files}}## Files
{{range .Files}}- {{.}}
{{end}}
{{end -}}
{{if .AcceptanceCriteria}}## Acceptance Criteria
{{range .AcceptanceCriteria}}- {{.}}
{{end}}
{{end -}}
{{if .Requirements}}## Requirements
{{range .Requirements}}- {{.}}
{{end}}
{{end -}}
{{if .BusinessRules}}## Business Rules
{{range .BusinessRules}}- {{.}}
{{end}}
{{end -}}
{{if .TestingRequirements}}## Testing Requirements
{{range .TestingRequirements}}- {{.}}
{{end}}
{{end -}}
When the task is fully done, end your output with the exact token:
<promise>COMPLETE</promise>
`)))

// DefaultPromptBuilder renders defaultPromptTemplate against a task.
type DefaultPromptBuilder struct{}

// Build renders the task's fields into a single prompt string.
func (DefaultPromptBuilder) Build(task *core.Task) (string, error) {
	var b strings.Builder
	if err := defaultPromptTemplate.Execute(&b, task); err != nil {
		return "", err
	}
	return b.String(), nil
}

var _ PromptBuilder = DefaultPromptBuilder{}
