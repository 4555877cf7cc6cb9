package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

type EmailMessage struct {
	To       string
	Name     string
	Template string
	Subject  string
	Body     string
	Vars     map[string]any
}

type WhatsAppMessage struct {
	Phone    string
	Name     string
	Template string
	Text     string
}

type CRMNote struct {
	Email       string
	Phone       string
	Name        string
	Action      string
	Description string
}

type EmailChannel interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

type WhatsAppChannel interface {
	SendWhatsApp(ctx context.Context, msg WhatsAppMessage) error
}

type CRMChannel interface {
	AddNote(ctx context.Context, note CRMNote) error
}

// Channels: canal nil = passo apenas registrado em log.
type Channels struct {
	Email    EmailChannel
	WhatsApp WhatsAppChannel
	CRM      CRMChannel
}

func (c Channels) describe() map[string]string {
	mode := func(live bool) string {
		if live {
			return "live"
		}
		return "log"
	}
	return map[string]string{
		"email":     mode(c.Email != nil),
		"whatsapp":  mode(c.WhatsApp != nil),
		"crm":       mode(c.CRM != nil),
		"analytics": "log",
	}
}

// stepVars monta as variáveis de template a partir do evento.
func stepVars(event entity.AutomationEvent) map[string]any {
	vars := make(map[string]any, len(event.Data)+4)
	for k, v := range event.Data {
		vars[k] = v
	}
	vars["nome"] = event.LeadName
	vars["email"] = event.LeadEmail
	vars["lead_id"] = event.LeadID
	vars["event_type"] = string(event.EventType)
	return vars
}

// executeStep roda um passo e devolve quanto esperar antes do próximo.
func (e *Engine) executeStep(ctx context.Context, inst *entity.SequenceInstance, step entity.Step) (time.Duration, error) {
	event := inst.Event
	vars := stepVars(event)
	lg := e.logger.With().
		Str("sequence_id", inst.SequenceID).
		Str("instance_id", inst.InstanceID).
		Str("step", string(step.Type)).
		Logger()

	var (
		wait    time.Duration
		action  string
		outcome = "success"
		err     error
	)

	switch step.Type {
	case entity.StepSendEmail:
		action = "email_sent"
		msg := EmailMessage{
			To:       event.LeadEmail,
			Name:     event.LeadName,
			Template: configString(step.Config, "template"),
			Vars:     vars,
		}
		if msg.Subject, err = e.renderer.Render(configString(step.Config, "subject"), vars); err != nil {
			break
		}
		if msg.Body, err = e.renderer.Render(configString(step.Config, "body"), vars); err != nil {
			break
		}
		if e.channels.Email == nil {
			lg.Info().Str("to", logger.MaskEmail(msg.To)).Str("template", msg.Template).Msg("📧 Email (simulado)")
			break
		}
		err = e.channels.Email.SendEmail(ctx, msg)

	case entity.StepSendWhatsApp:
		action = "whatsapp_sent"
		msg := WhatsAppMessage{
			Phone:    configString(event.Data, "telefone"),
			Name:     event.LeadName,
			Template: configString(step.Config, "template"),
		}
		if msg.Text, err = e.renderer.Render(configString(step.Config, "message"), vars); err != nil {
			break
		}
		if msg.Phone == "" {
			action = "whatsapp_skipped"
			outcome = "skipped"
			lg.Warn().Str("template", msg.Template).Msg("⚠️ WhatsApp: lead sem telefone, envio ignorado")
			break
		}
		if e.channels.WhatsApp == nil {
			lg.Info().Str("phone", logger.MaskPhone(msg.Phone)).Str("template", msg.Template).Msg("📱 WhatsApp (simulado)")
			break
		}
		err = e.channels.WhatsApp.SendWhatsApp(ctx, msg)

	case entity.StepTrackAnalytics:
		action = "analytics_tracked"
		name := configString(step.Config, "event_name")
		tracking, _ := step.Config["tracking"].(map[string]any)
		for _, sink := range []string{"ga4", "meta_pixel"} {
			if on, _ := tracking[sink].(bool); on {
				analyticsEvents.WithLabelValues(sink).Inc()
				lg.Info().Str("sink", sink).Str("event_name", name).Msg("📊 Evento de analytics registrado")
			}
		}

	case entity.StepUpdateCRM:
		action = "crm_updated"
		note := CRMNote{
			Email:  event.LeadEmail,
			Phone:  configString(event.Data, "telefone"),
			Name:   event.LeadName,
			Action: configString(step.Config, "action"),
		}
		if note.Description, err = e.renderer.Render(configString(step.Config, "description"), vars); err != nil {
			break
		}
		if e.channels.CRM == nil {
			lg.Info().Str("action", note.Action).Msg("🗂️ CRM atualizado (simulado)")
			break
		}
		err = e.channels.CRM.AddNote(ctx, note)

	case entity.StepDelay:
		action = "delay_scheduled"
		wait = time.Duration(configNumber(step.Config, "minutes")*float64(time.Minute)) +
			time.Duration(configNumber(step.Config, "hours")*float64(time.Hour)) +
			time.Duration(configNumber(step.Config, "days")*float64(24*time.Hour))

	default:
		lg.Warn().Msg("⚠️ Tipo de passo desconhecido, ignorando")
		stepsTotal.WithLabelValues(string(step.Type), "skipped").Inc()
		return 0, nil
	}

	if err != nil {
		stepsTotal.WithLabelValues(string(step.Type), "error").Inc()
		return 0, err
	}
	stepsTotal.WithLabelValues(string(step.Type), outcome).Inc()

	e.appendLog(ctx, entity.AutomationLogEntry{
		Timestamp:  e.now().UTC(),
		Action:     action,
		EventID:    event.EventID,
		SequenceID: inst.SequenceID,
		LeadEmail:  event.LeadEmail,
		Config:     step.Config,
	})
	return wait, nil
}

func configString(cfg map[string]any, key string) string {
	switch v := cfg[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// configNumber aceita os tipos que aparecem após JSON ou em literais Go.
func configNumber(cfg map[string]any, key string) float64 {
	switch v := cfg[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}
