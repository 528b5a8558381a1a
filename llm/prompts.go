package llm

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/EasterCompany/dex-assistant-service/interfaces"
)

const systemMessageTemplate = `
# AI Persona and Directives: {{.Name}}

## 1. Core Identity
* **Name:** Your name is {{.Name}}.{{if .Alias}} You can be referred to as "{{join .Alias ", "}}".{{end}}
{{- if .Pronouns}}
* **Pronouns:** Refer to yourself using "{{.Pronouns}}" pronouns.{{end}}
{{- if .Description}}
* **Background:** {{.Description}}{{end}}

## 2. Communication Style
{{- if .Tone}}
* **Tone:** {{join .Tone ", "}}.{{end}}
{{- if .Formality}}
* **Formality:** {{.Formality}}.{{end}}
{{- if .Verbosity}}
* **Verbosity:** {{.Verbosity}}.{{end}}

## 3. Operating Rules
* Messages may arrive with an appended "External context" block containing
  search results, documentation excerpts or page text. Treat that block as
  reference material for the current question, cite it when you use it, and
  never echo it back verbatim.
* When asked to read a document aloud, the service handles playback itself;
  you only answer questions about the text.
* Keep answers self-contained. You cannot run code or browse on your own.
`

// SystemPrompt renders the persona system prompt for inspection; the boot
// report attaches it to the log channel.
func SystemPrompt(persona *interfaces.Persona) string {
	prompt, err := createSystemMessage(persona)
	if err != nil {
		return ""
	}
	return prompt
}

// createSystemMessage renders the persona system prompt. A nil persona
// yields an empty prompt so providers fall back to their defaults.
func createSystemMessage(persona *interfaces.Persona) (string, error) {
	if persona == nil {
		return "", nil
	}

	funcMap := template.FuncMap{
		"join": strings.Join,
	}

	tmpl, err := template.New("systemMessage").Funcs(funcMap).Parse(systemMessageTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse system message template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, persona); err != nil {
		return "", fmt.Errorf("failed to execute system message template: %w", err)
	}

	return buf.String(), nil
}
