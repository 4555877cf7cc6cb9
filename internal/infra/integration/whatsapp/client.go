package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

const DefaultBaseURL = "https://graph.facebook.com/v18.0"

// Client envia mensagens pela WhatsApp Cloud API.
type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	http        *http.Client
	logger      zerolog.Logger
}

func NewClient(baseURL, accessToken, phoneID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		accessToken: accessToken,
		phoneID:     phoneID,
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 15 * time.Second},
		logger:      log.With().Str("component", "whatsapp").Logger(),
	}
}

func (c *Client) payload(input SendMessageInput) map[string]any {
	p := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                input.PhoneNumber,
	}
	if input.TemplateName == "" {
		p["type"] = "text"
		p["text"] = map[string]any{"body": input.Text}
		return p
	}

	tpl := map[string]any{
		"name":     input.TemplateName,
		"language": map[string]string{"code": "pt_BR"},
	}
	if len(input.Parameters) > 0 {
		tpl["components"] = []map[string]any{
			{"type": "body", "parameters": convertParametersToAPI(input.Parameters)},
		}
	}
	p["type"] = "template"
	p["template"] = tpl
	return p
}

func (c *Client) SendMessage(ctx context.Context, input SendMessageInput) error {
	if c.accessToken == "" || c.phoneID == "" {
		return fmt.Errorf("whatsapp não configurado")
	}

	body, err := json.Marshal(c.payload(input))
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro ao enviar mensagem: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if result.Error != nil {
		return fmt.Errorf("whatsapp: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("whatsapp api error: %d", resp.StatusCode)
	}

	c.logger.Info().Str("phone", logger.MaskPhone(input.PhoneNumber)).Msg("✅ WhatsApp: mensagem enviada")
	return nil
}

func convertParametersToAPI(params []string) []map[string]string {
	result := make([]map[string]string, 0, len(params))
	for _, param := range params {
		result = append(result, map[string]string{
			"type": "text",
			"text": param,
		})
	}
	return result
}
