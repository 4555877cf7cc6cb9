package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

func sampleFileLeads() []entity.FileLead {
	return []entity.FileLead{
		{
			LeadID:     "a1",
			Timestamp:  "2025-03-10T12:00:00Z",
			Nome:       "Ana Júlia",
			Email:      "ana@x.com",
			Telefone:   "11900000000",
			Status:     "novo",
			Source:     "landing_page",
			Notes:      "quer <b>desconto</b>",
			CreatedAt:  "2025-03-10T12:00:00Z",
			UpdatedAt:  "2025-03-10T12:05:00Z",
			SyncSource: "lead_store_bridge",
			OriginalID: "a1",
		},
	}
}

// ============ TESTES DE LEAD FILE ============

func TestLeadFile_GoldenFormat(t *testing.T) {
	blob := NewMemoryBlob("leads.json")
	require.NoError(t, NewLeadFile(blob).Save(context.Background(), sampleFileLeads()))

	data, err := blob.Read(context.Background())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "lead_file", data)
}

func TestLeadFile_MissingAndEmpty(t *testing.T) {
	ctx := context.Background()
	blob := NewMemoryBlob("leads.json")
	f := NewLeadFile(blob)

	_, err := f.Load(ctx)
	assert.ErrorIs(t, err, entity.ErrFileNotFound)

	require.NoError(t, blob.Write(ctx, []byte("  \n")))
	leads, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, leads)

	require.NoError(t, blob.Write(ctx, []byte("{quebrado")))
	_, err = f.Load(ctx)
	assert.Error(t, err)
}

func TestLocalBlob_AtomicWriteAndReadBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "leads.json")
	f := NewLeadFile(NewLocalBlob(path))

	_, err := f.Load(ctx)
	assert.ErrorIs(t, err, entity.ErrFileNotFound)

	require.NoError(t, f.Save(ctx, sampleFileLeads()))
	leads, err := f.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleFileLeads(), leads)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "nenhum temporário deve sobrar")
}

// ============ TESTES DE AUTOMATION STORE ============

func TestAutomationStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	newBlob := func(name string) Blob { return NewLocalBlob(filepath.Join(dir, name)) }

	store := NewAutomationStoreFor(newBlob)
	seqs, err := store.LoadSequences(ctx)
	require.NoError(t, err)
	assert.Empty(t, seqs)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSequences(ctx, automation.DefaultSequences(now)))

	next := now.Add(5 * time.Minute)
	require.NoError(t, store.SaveInstance(ctx, &entity.SequenceInstance{
		InstanceID:     "welcome_7_day_lead_capture_1",
		SequenceID:     "welcome_7_day",
		StepsCompleted: 2,
		StepsTotal:     3,
		Status:         entity.InstanceRunning,
		StartedAt:      now,
		NextRunAt:      &next,
	}))
	require.NoError(t, store.AppendLog(ctx, entity.AutomationLogEntry{Action: "email_sent", EventID: "lead_capture_1"}))

	reopened := NewAutomationStoreFor(newBlob)

	seqs, err = reopened.LoadSequences(ctx)
	require.NoError(t, err)
	require.Len(t, seqs, 3)
	assert.Equal(t, automation.SequenceWelcome, seqs[0].SequenceID)
	assert.Equal(t, 5, seqs[0].Steps[1].DelayMinutes)

	inst, err := reopened.GetInstance(ctx, "welcome_7_day_lead_capture_1")
	require.NoError(t, err)
	assert.Equal(t, 2, inst.StepsCompleted)
	require.NotNil(t, inst.NextRunAt)
	assert.True(t, inst.NextRunAt.Equal(next))

	_, err = reopened.GetInstance(ctx, "nao-existe")
	assert.ErrorIs(t, err, automation.ErrInstanceNotFound)

	logs, err := reopened.ListLog(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "email_sent", logs[0].Action)
}

func TestAutomationStore_DrivesEngine(t *testing.T) {
	ctx := context.Background()
	store := NewAutomationStoreFor(func(name string) Blob { return NewMemoryBlob(name) })
	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	engine := automation.NewEngine(store, automation.WithClock(func() time.Time { return clock }))

	_, err := engine.SeedDefaults(ctx)
	require.NoError(t, err)

	res, err := engine.TriggerLeadCapture(ctx, &entity.Lead{ID: "l1", Nome: "Ana", Email: "ana@x.com", Telefone: "11900000000"})
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)

	clock = clock.Add(10 * time.Minute)
	n, err := engine.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inst, err := store.GetInstance(ctx, res.Instances[0].InstanceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InstanceCompleted, inst.Status)
}
