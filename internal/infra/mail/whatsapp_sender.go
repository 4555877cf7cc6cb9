package mail

import (
	"context"
	"errors"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/integration/whatsapp"
)

var ErrMissingPhone = errors.New("whatsapp: lead sem telefone")

type whatsAppClient interface {
	SendMessage(ctx context.Context, input whatsapp.SendMessageInput) error
}

// WhatsAppSender adapta o client da Cloud API ao canal de WhatsApp da automação.
type WhatsAppSender struct {
	client whatsAppClient
}

func NewWhatsAppSender(client whatsAppClient) *WhatsAppSender {
	return &WhatsAppSender{client: client}
}

// SendWhatsApp usa o template quando houver e o texto renderizado caso contrário.
func (s *WhatsAppSender) SendWhatsApp(ctx context.Context, msg automation.WhatsAppMessage) error {
	if msg.Phone == "" {
		return ErrMissingPhone
	}

	input := whatsapp.SendMessageInput{
		PhoneNumber:  msg.Phone,
		TemplateName: msg.Template,
		Text:         msg.Text,
	}
	if msg.Template != "" && msg.Name != "" {
		input.Parameters = []string{msg.Name}
	}
	return s.client.SendMessage(ctx, input)
}

var _ automation.WhatsAppChannel = (*WhatsAppSender)(nil)
