package automation

import (
	"context"
	"sort"
	"sync"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

// MaxLogEntries limita o log de automação; os mais antigos saem primeiro.
const MaxLogEntries = 1000

// Store persiste o registro de sequências, as instâncias e o log.
type Store interface {
	LoadSequences(ctx context.Context) ([]entity.AutomationSequence, error)
	SaveSequences(ctx context.Context, seqs []entity.AutomationSequence) error

	SaveInstance(ctx context.Context, inst *entity.SequenceInstance) error
	GetInstance(ctx context.Context, id string) (*entity.SequenceInstance, error)
	ListInstances(ctx context.Context) ([]*entity.SequenceInstance, error)

	AppendLog(ctx context.Context, entry entity.AutomationLogEntry) error
	ListLog(ctx context.Context) ([]entity.AutomationLogEntry, error)
}

// CapLog aplica o limite FIFO.
func CapLog(entries []entity.AutomationLogEntry) []entity.AutomationLogEntry {
	if len(entries) <= MaxLogEntries {
		return entries
	}
	return append([]entity.AutomationLogEntry(nil), entries[len(entries)-MaxLogEntries:]...)
}

type MemoryStore struct {
	mu        sync.RWMutex
	sequences []entity.AutomationSequence
	instances map[string]entity.SequenceInstance
	log       []entity.AutomationLogEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{instances: make(map[string]entity.SequenceInstance)}
}

func (s *MemoryStore) LoadSequences(ctx context.Context) ([]entity.AutomationSequence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.AutomationSequence(nil), s.sequences...), nil
}

func (s *MemoryStore) SaveSequences(ctx context.Context, seqs []entity.AutomationSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences = append([]entity.AutomationSequence(nil), seqs...)
	return nil
}

func (s *MemoryStore) SaveInstance(ctx context.Context, inst *entity.SequenceInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.InstanceID] = *inst
	return nil
}

func (s *MemoryStore) GetInstance(ctx context.Context, id string) (*entity.SequenceInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return &inst, nil
}

// ListInstances ordena por started_at para que o Tick seja determinístico.
func (s *MemoryStore) ListInstances(ctx context.Context) ([]*entity.SequenceInstance, error) {
	s.mu.RLock()
	out := make([]*entity.SequenceInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		c := inst
		out = append(out, &c)
	}
	s.mu.RUnlock()

	SortInstances(out)
	return out, nil
}

func (s *MemoryStore) AppendLog(ctx context.Context, entry entity.AutomationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = CapLog(append(s.log, entry))
	return nil
}

func (s *MemoryStore) ListLog(ctx context.Context) ([]entity.AutomationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.AutomationLogEntry(nil), s.log...), nil
}

func SortInstances(list []*entity.SequenceInstance) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.Before(list[j].StartedAt)
		}
		return list[i].InstanceID < list[j].InstanceID
	})
}
