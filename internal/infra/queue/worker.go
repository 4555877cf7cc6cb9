package queue

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

// TriggerHandler é implementado pelo automation.Engine.
type TriggerHandler interface {
	Trigger(ctx context.Context, eventType entity.EventType, lead automation.LeadData) (*automation.TriggerResult, error)
}

type channelConsumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel channelConsumer
	Handler TriggerHandler
	logger  zerolog.Logger
}

func NewWorker(ch channelConsumer, handler TriggerHandler) *Worker {
	return &Worker{
		Channel: ch,
		Handler: handler,
		logger:  log.With().Str("component", "queue_worker").Logger(),
	}
}

// Start consome a fila até ctx ser cancelado ou o canal fechar.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual é mais seguro)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	w.logger.Info().Str("queue", queueName).Msg("🐇 Worker aguardando na fila")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("canal do RabbitMQ fechado")
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var msg TriggerMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		w.logger.Error().Err(err).Msg("❌ JSON inválido, enviando para DLQ")
		// mensagem malformada não volta para a fila
		d.Nack(false, false)
		return
	}

	lg := w.logger.With().Str("event_type", string(msg.EventType)).Str("email", logger.MaskEmail(msg.Email)).Logger()

	res, err := w.Handler.Trigger(ctx, msg.EventType, automation.LeadData{
		LeadID: msg.LeadID,
		Email:  msg.Email,
		Name:   msg.Name,
		Data:   msg.Data,
	})
	if res == nil && err != nil {
		lg.Error().Err(err).Msg("❌ Disparo rejeitado, enviando para DLQ")
		d.Nack(false, false)
		return
	}

	// falhas de passo ficam registradas na instância; reentregar duplicaria envios
	if err != nil {
		lg.Warn().Err(err).Str("event_id", res.EventID).Msg("⚠️ Evento processado com erros")
	} else {
		lg.Info().Str("event_id", res.EventID).Int("sequences", len(res.Instances)).Msg("✅ Disparo processado")
	}
	d.Ack(false)
}
