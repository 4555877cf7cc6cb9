package automation

import (
	"context"
	"sync"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

// Publisher repassa eventos processados para fora do processo (RabbitMQ).
type Publisher interface {
	PublishEvent(ctx context.Context, event entity.AutomationEvent) error
}

// EventQueue registra os eventos em processamento; Size alimenta status e métricas.
type EventQueue struct {
	mu       sync.Mutex
	inFlight map[string]entity.EventType
	total    int
}

func NewEventQueue() *EventQueue {
	return &EventQueue{inFlight: make(map[string]entity.EventType)}
}

func (q *EventQueue) Push(event entity.AutomationEvent) {
	q.mu.Lock()
	q.inFlight[event.EventID] = event.EventType
	q.total++
	n := len(q.inFlight)
	q.mu.Unlock()
	queueSize.Set(float64(n))
}

func (q *EventQueue) Done(eventID string) {
	q.mu.Lock()
	delete(q.inFlight, eventID)
	n := len(q.inFlight)
	q.mu.Unlock()
	queueSize.Set(float64(n))
}

func (q *EventQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

func (q *EventQueue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}
