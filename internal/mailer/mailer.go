// Package mailer sends waiting list notifications through SendGrid.
package mailer

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"agora/internal/config"
	"agora/lib/sl"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const inviteTemplate = "invite.gohtml"

var templateSubjects = map[string]string{
	inviteTemplate: "Your Agora invite is ready",
}

type inviteData struct {
	InviteURL string
	Position  int
}

type Mailer struct {
	cli       *sendgrid.Client
	from      *mail.Email
	inviteURL string
	templates map[string]*template.Template
	log       *slog.Logger
}

func New(conf config.MailConfig, log *slog.Logger) (*Mailer, error) {
	if conf.APIKey == "" || conf.FromEmail == "" || conf.FromName == "" {
		return nil, fmt.Errorf("incomplete mail config")
	}
	m := &Mailer{
		cli:       sendgrid.NewSendClient(conf.APIKey),
		from:      mail.NewEmail(conf.FromName, conf.FromEmail),
		inviteURL: conf.InviteURL,
		templates: make(map[string]*template.Template),
		log:       log.With(sl.Module("mailer")),
	}
	if err := m.parseTemplates(); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return m, nil
}

func (m *Mailer) parseTemplates() error {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		tmpl, err := template.ParseFS(templatesFS, filepath.Join("templates", entry.Name()))
		if err != nil {
			return fmt.Errorf("template %s: %w", entry.Name(), err)
		}
		m.templates[entry.Name()] = tmpl
	}
	return nil
}

// SendInvite mails the single-use invite link. Any non-2xx provider
// response is an error; the caller decides what state to keep.
func (m *Mailer) SendInvite(ctx context.Context, to, code string, position int) error {
	html, err := m.render(inviteTemplate, inviteData{
		InviteURL: m.inviteLink(to, code),
		Position:  position,
	})
	if err != nil {
		return err
	}

	msg := mail.NewSingleEmail(
		m.from,
		templateSubjects[inviteTemplate],
		mail.NewEmail("", to),
		"Your Agora invite is ready: "+m.inviteLink(to, code),
		html,
	)
	resp, err := m.cli.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}

	m.log.With(sl.Email(to)).Debug("invite mail dispatched")
	return nil
}

func (m *Mailer) render(name string, data interface{}) (string, error) {
	tmpl, ok := m.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	body := &strings.Builder{}
	if err := tmpl.Execute(body, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return body.String(), nil
}

func (m *Mailer) inviteLink(email, code string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("code", code)
	return m.inviteURL + "?" + q.Encode()
}
