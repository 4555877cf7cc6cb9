package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

// TriggerMessage é o pedido de disparo consumido pelo Worker.
type TriggerMessage struct {
	EventType entity.EventType `json:"event_type"`
	LeadID    string           `json:"lead_id"`
	Email     string           `json:"email"`
	Name      string           `json:"name"`
	Data      map[string]any   `json:"data,omitempty"`
}

type channelPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch channelPublisher
}

func NewProducer(ch channelPublisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) publish(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		key,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}

// PublishEvent anuncia um evento de automação já processado.
func (p *RabbitMQProducer) PublishEvent(ctx context.Context, event entity.AutomationEvent) error {
	return p.publish(ctx, EventKeyPrefix+string(event.EventType), event)
}

// PublishTrigger enfileira um disparo para ser processado pelo Worker.
func (p *RabbitMQProducer) PublishTrigger(ctx context.Context, msg TriggerMessage) error {
	return p.publish(ctx, TriggerKeyPrefix+string(msg.EventType), msg)
}
