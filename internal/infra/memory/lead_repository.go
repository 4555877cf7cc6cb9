package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

// LeadRepository é o Lead Store em memória (driver "memory" e testes).
// Emite change feed para quem estiver em Watch.
type LeadRepository struct {
	mu       sync.RWMutex
	leads    map[string]*entity.Lead
	watchers map[int]*watcher
	nextID   int
}

type watcher struct {
	ch   chan entity.LeadChange
	done chan struct{}
}

func NewLeadRepository() *LeadRepository {
	return &LeadRepository{
		leads:    make(map[string]*entity.Lead),
		watchers: make(map[int]*watcher),
	}
}

func clone(l *entity.Lead) *entity.Lead {
	c := *l
	return &c
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	r.leads[lead.ID] = clone(lead)
	r.mu.Unlock()
	r.publish(ctx, entity.LeadChange{Op: entity.ChangeInsert, LeadID: lead.ID, Lead: clone(lead)})
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return clone(l), nil
}

func (r *LeadRepository) FindByContact(ctx context.Context, email, telefone string) (*entity.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.leads {
		if l.Email == email && l.Telefone == telefone {
			return clone(l), nil
		}
	}
	return nil, entity.ErrLeadNotFound
}

// List devolve os leads do mais recente para o mais antigo.
func (r *LeadRepository) List(ctx context.Context) ([]*entity.Lead, error) {
	r.mu.RLock()
	out := make([]*entity.Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, clone(l))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	if _, ok := r.leads[lead.ID]; !ok {
		r.mu.Unlock()
		return entity.ErrLeadNotFound
	}
	r.leads[lead.ID] = clone(lead)
	r.mu.Unlock()
	r.publish(ctx, entity.LeadChange{Op: entity.ChangeUpdate, LeadID: lead.ID, Lead: clone(lead)})
	return nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.leads[id]; !ok {
		r.mu.Unlock()
		return entity.ErrLeadNotFound
	}
	delete(r.leads, id)
	r.mu.Unlock()
	r.publish(ctx, entity.LeadChange{Op: entity.ChangeDelete, LeadID: id})
	return nil
}

func (r *LeadRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads), nil
}

func (r *LeadRepository) CountByStatus(ctx context.Context) (map[entity.LeadStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[entity.LeadStatus]int)
	for _, l := range r.leads {
		out[l.Status]++
	}
	return out, nil
}

func (r *LeadRepository) Ping(ctx context.Context) error { return nil }

func (r *LeadRepository) Watch(ctx context.Context, fn func(entity.LeadChange)) error {
	w := &watcher{ch: make(chan entity.LeadChange, 64), done: make(chan struct{})}

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = w
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-w.ch:
			fn(change)
		}
	}
}

// WatcherCount devolve quantos Watch estão ativos.
func (r *LeadRepository) WatcherCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watchers)
}

// publish entrega sem segurar r.mu: um consumidor lento não trava escritas
// nem leituras. Desiste quando o watcher encerra ou ctx é cancelado.
func (r *LeadRepository) publish(ctx context.Context, change entity.LeadChange) {
	r.mu.RLock()
	targets := make([]*watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		targets = append(targets, w)
	}
	r.mu.RUnlock()

	for _, w := range targets {
		select {
		case w.ch <- change:
		case <-w.done:
		case <-ctx.Done():
			return
		}
	}
}
