package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var defaultBody = template.Must(template.New("default").Parse(
	`<p>Olá {{.Name}},</p><p>{{.Subject}}</p><p style="color:#888">ref: {{.Template}}</p>`))

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

func (s *EmailSender) buildMessage(msg automation.EmailMessage) (*gomail.Message, error) {
	subject := msg.Subject
	if subject == "" {
		subject = fmt.Sprintf("Olá, %s!", msg.Name)
	}

	body := msg.Body
	if body == "" {
		var buf bytes.Buffer
		if err := defaultBody.Execute(&buf, defaultEmailData{Name: msg.Name, Template: msg.Template, Subject: subject}); err != nil {
			return nil, fmt.Errorf("erro ao processar template: %w", err)
		}
		body = buf.String()
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return m, nil
}

// SendEmail implementa o canal de email da automação via SMTP.
func (s *EmailSender) SendEmail(ctx context.Context, msg automation.EmailMessage) error {
	if msg.To == "" {
		return fmt.Errorf("email sem destinatário")
	}

	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}

	log.Info().Str("to", logger.MaskEmail(msg.To)).Str("template", msg.Template).Msg("📧 Email enviado")
	return nil
}

var _ automation.EmailChannel = (*EmailSender)(nil)
