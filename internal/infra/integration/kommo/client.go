package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

var errContactNotFound = errors.New("contato não encontrado")

// Client fala com a API v4 do Kommo. É o canal de CRM da automação.
type Client struct {
	apiToken string
	baseURL  string
	http     *http.Client
	logger   zerolog.Logger
}

func NewClient(baseURL, apiToken string) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   log.With().Str("component", "kommo").Logger(),
	}
}

// AddNote registra a ação da automação como nota no contato, criando o
// contato quando ele ainda não existe.
func (c *Client) AddNote(ctx context.Context, note automation.CRMNote) error {
	if c.apiToken == "" {
		return fmt.Errorf("kommo não configurado")
	}

	contactID, err := c.findOrCreateContact(ctx, ContactInput{Name: note.Name, Phone: note.Phone, Email: note.Email})
	if err != nil {
		return fmt.Errorf("erro ao criar/buscar contato: %w", err)
	}

	text := note.Description
	if text == "" {
		text = fmt.Sprintf("Automação: %s", note.Action)
	}

	body, status, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/contacts/%d/notes", contactID),
		[]noteRequest{{NoteType: "common", Params: noteParams{Text: text}}})
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("erro ao criar nota: %d - %s", status, string(body))
	}

	c.logger.Info().Int("contact_id", contactID).Str("action", note.Action).Msg("✅ Kommo: nota registrada")
	return nil
}

func (c *Client) findOrCreateContact(ctx context.Context, input ContactInput) (int, error) {
	for _, q := range []string{input.Phone, input.Email} {
		if q == "" {
			continue
		}
		id, err := c.findContact(ctx, q)
		if err == nil {
			c.logger.Debug().Int("contact_id", id).Msg("📱 Kommo: contato existente encontrado")
			return id, nil
		}
		if !errors.Is(err, errContactNotFound) {
			return 0, err
		}
	}
	return c.createContact(ctx, input)
}

func (c *Client) findContact(ctx context.Context, query string) (int, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(query), nil)
	if err != nil {
		return 0, err
	}
	// o Kommo responde 204 sem corpo quando a busca é vazia
	if status == http.StatusNoContent {
		return 0, errContactNotFound
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("erro ao buscar contato: %d", status)
	}

	var result contactsEnvelope
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, errContactNotFound
	}
	return result.Embedded.Contacts[0].ID, nil
}

func (c *Client) createContact(ctx context.Context, input ContactInput) (int, error) {
	fields := []map[string]any{}
	if input.Phone != "" {
		fields = append(fields, map[string]any{
			"field_code": "PHONE",
			"values":     []map[string]any{{"value": input.Phone, "enum_code": "WORK"}},
		})
	}
	if input.Email != "" {
		fields = append(fields, map[string]any{
			"field_code": "EMAIL",
			"values":     []map[string]any{{"value": input.Email, "enum_code": "WORK"}},
		})
	}

	body, status, err := c.do(ctx, http.MethodPost, "/contacts", []map[string]any{
		{"name": input.Name, "custom_fields_values": fields},
	})
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return 0, fmt.Errorf("erro ao criar contato: %d - %s", status, string(body))
	}

	var result contactsEnvelope
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, err
	}
	if len(result.Embedded.Contacts) == 0 {
		return 0, fmt.Errorf("erro ao obter ID do contato criado")
	}

	id := result.Embedded.Contacts[0].ID
	c.logger.Info().Int("contact_id", id).Str("phone", logger.MaskPhone(input.Phone)).Msg("✅ Kommo: novo contato criado")
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	return body, resp.StatusCode, err
}

var _ automation.CRMChannel = (*Client)(nil)
