package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

const (
	SequencesFile = "active_sequences.json"
	InstancesFile = "sequence_instances.json"
	LogFile       = "automation_log.json"
)

// AutomationStore persiste o estado da automação em três documentos JSON.
// Cada escrita regrava o documento inteiro.
type AutomationStore struct {
	mu        sync.Mutex
	sequences Blob
	instances Blob
	log       Blob
}

func NewAutomationStore(sequences, instances, log Blob) *AutomationStore {
	return &AutomationStore{sequences: sequences, instances: instances, log: log}
}

// NewAutomationStoreFor monta os três blobs com o mesmo construtor.
func NewAutomationStoreFor(newBlob func(name string) Blob) *AutomationStore {
	return NewAutomationStore(newBlob(SequencesFile), newBlob(InstancesFile), newBlob(LogFile))
}

func readDoc(ctx context.Context, b Blob, v any) (bool, error) {
	data, err := b.Read(ctx)
	if errors.Is(err, entity.ErrFileNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("arquivo %s corrompido: %w", b.Name(), err)
	}
	return true, nil
}

func writeDoc(ctx context.Context, b Blob, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	return b.Write(ctx, data)
}

func (s *AutomationStore) LoadSequences(ctx context.Context) ([]entity.AutomationSequence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seqs []entity.AutomationSequence
	if _, err := readDoc(ctx, s.sequences, &seqs); err != nil {
		return nil, err
	}
	return seqs, nil
}

func (s *AutomationStore) SaveSequences(ctx context.Context, seqs []entity.AutomationSequence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seqs == nil {
		seqs = []entity.AutomationSequence{}
	}
	return writeDoc(ctx, s.sequences, seqs)
}

func (s *AutomationStore) loadInstances(ctx context.Context) (map[string]*entity.SequenceInstance, error) {
	m := make(map[string]*entity.SequenceInstance)
	if _, err := readDoc(ctx, s.instances, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *AutomationStore) SaveInstance(ctx context.Context, inst *entity.SequenceInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadInstances(ctx)
	if err != nil {
		return err
	}
	c := *inst
	m[inst.InstanceID] = &c
	return writeDoc(ctx, s.instances, m)
}

func (s *AutomationStore) GetInstance(ctx context.Context, id string) (*entity.SequenceInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadInstances(ctx)
	if err != nil {
		return nil, err
	}
	inst, ok := m[id]
	if !ok {
		return nil, automation.ErrInstanceNotFound
	}
	return inst, nil
}

func (s *AutomationStore) ListInstances(ctx context.Context) ([]*entity.SequenceInstance, error) {
	s.mu.Lock()
	m, err := s.loadInstances(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]*entity.SequenceInstance, 0, len(m))
	for _, inst := range m {
		out = append(out, inst)
	}
	automation.SortInstances(out)
	return out, nil
}

func (s *AutomationStore) AppendLog(ctx context.Context, entry entity.AutomationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []entity.AutomationLogEntry
	if _, err := readDoc(ctx, s.log, &entries); err != nil {
		return err
	}
	entries = automation.CapLog(append(entries, entry))
	return writeDoc(ctx, s.log, entries)
}

func (s *AutomationStore) ListLog(ctx context.Context) ([]entity.AutomationLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []entity.AutomationLogEntry
	if _, err := readDoc(ctx, s.log, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ automation.Store = (*AutomationStore)(nil)
