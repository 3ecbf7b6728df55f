package email

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"sync"

	"github.com/jwalitptl/conference-api/pkg/logger"
)

const defaultInvitationTemplate = `<p>Dear {{.ReviewerName}},</p>
<p>You are invited to review <strong>{{.PaperTitle}}</strong>.</p>
<p>Please respond to this invitation by accepting or rejecting it before {{.DueDate}}.</p>
{{if .RespondURL}}<p><a href="{{.RespondURL}}">Respond now</a></p>{{end}}`

// InvitationMessage is the data the invitation template renders.
type InvitationMessage struct {
	ReviewerName string
	PaperTitle   string
	DueDate      string
	RespondURL   string
	Signature    string
}

// InvitationTemplate parses its file at most once and falls back to a built-in
// body when the file is missing, invalid or fails to execute.
type InvitationTemplate struct {
	path     string
	log      *logger.Logger
	once     sync.Once
	tmpl     *template.Template
	fallback *template.Template
}

func NewInvitationTemplate(path string, log *logger.Logger) *InvitationTemplate {
	return &InvitationTemplate{path: path, log: log}
}

func (t *InvitationTemplate) load() {
	t.fallback = template.Must(template.New("invitation.default").Parse(defaultInvitationTemplate))
	t.tmpl = t.fallback
	if t.path == "" {
		return
	}

	raw, err := os.ReadFile(t.path)
	if err != nil {
		t.log.Warn("invitation template unavailable, using default", "path", t.path, "error", err.Error())
		return
	}
	parsed, err := template.New("invitation").Parse(string(raw))
	if err != nil {
		t.log.Warn("invitation template invalid, using default", "path", t.path, "error", err.Error())
		return
	}
	t.tmpl = parsed
}

func (t *InvitationTemplate) Subject(msg InvitationMessage) string {
	return fmt.Sprintf("Review invitation: %s", msg.PaperTitle)
}

func (t *InvitationTemplate) Render(msg InvitationMessage) (string, error) {
	t.once.Do(t.load)

	var buf bytes.Buffer
	err := t.tmpl.Execute(&buf, msg)
	if err == nil {
		return buf.String(), nil
	}
	if t.tmpl == t.fallback {
		return "", fmt.Errorf("failed to render invitation: %w", err)
	}

	t.log.Warn("invitation template failed, using default", "path", t.path, "error", err.Error())
	buf.Reset()
	if err := t.fallback.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("failed to render invitation: %w", err)
	}
	return buf.String(), nil
}
