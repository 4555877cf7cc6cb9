package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingEmail struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (r *recordingEmail) SendEmail(ctx context.Context, msg EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type recordingWhatsApp struct {
	sent []WhatsAppMessage
}

func (r *recordingWhatsApp) SendWhatsApp(ctx context.Context, msg WhatsAppMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}

type recordingPublisher struct {
	events []entity.AutomationEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, event entity.AutomationEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type stubLocker struct {
	acquire  bool
	released int
}

func (l *stubLocker) Acquire(ctx context.Context) (bool, error) { return l.acquire, nil }
func (l *stubLocker) Release(ctx context.Context) error {
	l.released++
	return nil
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	e := NewEngine(store, append([]Option{WithClock(clock.Now)}, opts...)...)
	_, err := e.SeedDefaults(context.Background())
	require.NoError(t, err)
	return e, store, clock
}

func anaLead() *entity.Lead {
	return &entity.Lead{
		ID:       "lead-1",
		Nome:     "Ana",
		Email:    "ana@x.com",
		Telefone: "11900000000",
		Status:   entity.StatusNovo,
		Fonte:    "landing_page",
	}
}

// ============ TESTES DE SEED ============

func TestSeedDefaults_Idempotent(t *testing.T) {
	e, store, _ := newTestEngine(t)

	added, err := e.SeedDefaults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	seqs, _ := store.LoadSequences(context.Background())
	assert.Len(t, seqs, 3)
}

// ============ TESTES DE TRIGGER ============

func TestTriggerLeadCapture_StartsWelcomeSequence(t *testing.T) {
	email := &recordingEmail{}
	wa := &recordingWhatsApp{}
	pub := &recordingPublisher{}
	e, store, _ := newTestEngine(t, WithChannels(Channels{Email: email, WhatsApp: wa}), WithPublisher(pub))

	res, err := e.TriggerLeadCapture(context.Background(), anaLead())
	require.NoError(t, err)

	require.Len(t, res.Instances, 1)
	inst := res.Instances[0]
	assert.Equal(t, SequenceWelcome, inst.SequenceID)
	assert.Equal(t, 3, inst.StepsTotal)
	assert.Equal(t, 2, inst.StepsCompleted)
	assert.Equal(t, entity.InstanceRunning, inst.Status)
	require.NotNil(t, inst.NextRunAt)
	assert.Equal(t, SequenceWelcome+"_"+res.EventID, inst.InstanceID)
	assert.Contains(t, res.EventID, "lead_capture_")
	assert.Equal(t, entity.EventCompleted, res.Status)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "Bem-vindo(a), Ana!", email.sent[0].Subject)
	assert.Equal(t, "welcome_day_0", email.sent[0].Template)

	require.Len(t, wa.sent, 1)
	assert.Equal(t, "11900000000", wa.sent[0].Phone)
	assert.Contains(t, wa.sent[0].Text, "Olá Ana!")

	require.Len(t, pub.events, 1)
	assert.Equal(t, entity.EventLeadCapture, pub.events[0].EventType)

	stored, err := store.GetInstance(context.Background(), inst.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StepsCompleted)
}

func TestWhatsAppStep_WithoutPhoneIsLoggedAsSkipped(t *testing.T) {
	wa := &recordingWhatsApp{}
	e, _, _ := newTestEngine(t, WithChannels(Channels{Email: &recordingEmail{}, WhatsApp: wa}))
	ctx := context.Background()

	lead := anaLead()
	lead.Telefone = ""
	res, err := e.TriggerLeadCapture(ctx, lead)
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, 2, res.Instances[0].StepsCompleted)

	assert.Empty(t, wa.sent)
	entries, err := e.Log(ctx)
	require.NoError(t, err)
	var actions []string
	for _, en := range entries {
		actions = append(actions, en.Action)
	}
	assert.Equal(t, []string{"email_sent", "whatsapp_skipped"}, actions)
}

func TestTrigger_SameClockTickKeepsInstancesApart(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := e.TriggerLeadCapture(ctx, anaLead())
	require.NoError(t, err)
	second, err := e.TriggerLeadCapture(ctx, anaLead())
	require.NoError(t, err)

	assert.NotEqual(t, first.EventID, second.EventID)
	assert.NotEqual(t, first.Instances[0].InstanceID, second.Instances[0].InstanceID)

	all, err := store.ListInstances(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTrigger_UnknownEvent(t *testing.T) {
	e, _, _ := newTestEngine(t)

	res, err := e.Trigger(context.Background(), entity.EventType("page_view"), LeadData{Email: "a@x.com"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestTrigger_NoMatchingSequence(t *testing.T) {
	e, _, _ := newTestEngine(t)

	res, err := e.TriggerStatusChange(context.Background(), anaLead(), entity.StatusNovo, entity.StatusQualificado)
	require.NoError(t, err)
	assert.Empty(t, res.Instances)
	assert.Equal(t, []string{"sales_sequence"}, res.StatusTriggers)
}

func TestTrigger_PublishFailureDoesNotAbort(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker fora")}
	e, _, _ := newTestEngine(t, WithPublisher(pub))

	res, err := e.TriggerPurchaseCompleted(context.Background(), map[string]any{
		"customer_email": "bia@x.com",
		"customer_name":  "Bia",
	})
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, SequenceOnboarding, res.Instances[0].SequenceID)
	assert.Equal(t, "bia@x.com", res.Instances[0].Event.LeadEmail)
}

// ============ TESTES DE SCHEDULER ============

func TestTick_CompletesWelcomeAfterDelay(t *testing.T) {
	e, store, clock := newTestEngine(t)
	ctx := context.Background()

	res, err := e.TriggerLeadCapture(ctx, anaLead())
	require.NoError(t, err)
	id := res.Instances[0].InstanceID

	n, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "espera ainda não venceu")

	clock.Advance(5 * time.Minute)
	n, err = e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inst, err := store.GetInstance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.InstanceCompleted, inst.Status)
	assert.Equal(t, 3, inst.StepsCompleted)
	require.NotNil(t, inst.CompletedAt)

	logs, _ := store.ListLog(ctx)
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{"email_sent", "whatsapp_sent", "analytics_tracked"}, actions)
}

func TestTick_ResumesAfterRestart(t *testing.T) {
	ctx := context.Background()
	e, store, clock := newTestEngine(t)

	res, err := e.TriggerCartAbandonment(ctx, map[string]any{"email": "caio@x.com", "nome": "Caio"})
	require.NoError(t, err)
	id := res.Instances[0].InstanceID

	// novo engine sobre o mesmo store simula um restart do processo
	restarted := NewEngine(store, WithClock(clock.Now))

	clock.Advance(60 * time.Minute)
	n, err := restarted.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inst, _ := store.GetInstance(ctx, id)
	assert.Equal(t, 2, inst.StepsCompleted)
	assert.Equal(t, entity.InstanceRunning, inst.Status)

	clock.Advance(120 * time.Minute)
	_, err = restarted.Tick(ctx)
	require.NoError(t, err)

	clock.Advance(1440 * time.Minute)
	_, err = restarted.Tick(ctx)
	require.NoError(t, err)

	inst, _ = store.GetInstance(ctx, id)
	assert.Equal(t, entity.InstanceCompleted, inst.Status)
	assert.Equal(t, 3, inst.StepsCompleted)
}

func TestTick_SkipsWhenLockHeldElsewhere(t *testing.T) {
	locker := &stubLocker{acquire: false}
	e, _, clock := newTestEngine(t, WithLocker(locker))
	ctx := context.Background()

	_, err := e.TriggerLeadCapture(ctx, anaLead())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	n, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, locker.released)
}

func TestTick_MissingSequenceMarksError(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInstance(ctx, &entity.SequenceInstance{
		InstanceID: "fantasma_1",
		SequenceID: "fantasma",
		StepsTotal: 1,
		Status:     entity.InstanceRunning,
	}))

	_, err := e.Tick(ctx)
	assert.ErrorIs(t, err, entity.ErrSequenceNotFound)

	inst, _ := store.GetInstance(ctx, "fantasma_1")
	assert.Equal(t, entity.InstanceError, inst.Status)
}

// ============ TESTES DE ERRO ============

func TestStepError_MarksInstanceError(t *testing.T) {
	email := &recordingEmail{err: errors.New("smtp recusou")}
	e, store, _ := newTestEngine(t, WithChannels(Channels{Email: email}))
	ctx := context.Background()

	res, err := e.TriggerLeadCapture(ctx, anaLead())
	require.Error(t, err)
	require.Len(t, res.Instances, 1)
	assert.Equal(t, entity.EventError, res.Status)
	assert.NotEmpty(t, res.Errors)

	inst, _ := store.GetInstance(ctx, res.Instances[0].InstanceID)
	assert.Equal(t, entity.InstanceError, inst.Status)
	assert.Equal(t, 0, inst.StepsCompleted)
	assert.Contains(t, inst.Error, "smtp recusou")

	n, err := e.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "instância com erro não é retomada")
}

func TestUnknownStepType_IsSkipped(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSequences(ctx, []entity.AutomationSequence{{
		SequenceID:   "custom",
		TriggerEvent: entity.EventStatusChange,
		Active:       true,
		Steps: []entity.Step{
			{Type: "send_sms"},
			{Type: entity.StepDelay, Config: map[string]any{"hours": 2}},
			{Type: entity.StepUpdateCRM, Config: map[string]any{"action": "status", "description": "{{nome}} mudou"}},
		},
	}}))

	res, err := e.TriggerStatusChange(ctx, anaLead(), entity.StatusNovo, entity.StatusContatado)
	require.NoError(t, err)
	require.Len(t, res.Instances, 1)

	inst := res.Instances[0]
	assert.Equal(t, 2, inst.StepsCompleted)
	require.NotNil(t, inst.NextRunAt)
	assert.Equal(t, 2*time.Hour, inst.NextRunAt.Sub(inst.StartedAt))
}

func TestProcessEvent_FailingSequenceDoesNotStopOthers(t *testing.T) {
	email := &recordingEmail{err: errors.New("smtp fora")}
	e, store, _ := newTestEngine(t, WithChannels(Channels{Email: email}))
	ctx := context.Background()

	require.NoError(t, store.SaveSequences(ctx, []entity.AutomationSequence{
		{SequenceID: "a_email", TriggerEvent: entity.EventPurchaseCompleted, Active: true,
			Steps: []entity.Step{{Type: entity.StepSendEmail, Config: map[string]any{"template": "thank_you"}}}},
		{SequenceID: "b_inativa", TriggerEvent: entity.EventPurchaseCompleted, Active: false,
			Steps: []entity.Step{{Type: entity.StepTrackAnalytics}}},
		{SequenceID: "c_analytics", TriggerEvent: entity.EventPurchaseCompleted, Active: true,
			Steps: []entity.Step{{Type: entity.StepTrackAnalytics, Config: map[string]any{"event_name": "Purchase"}}}},
	}))

	event := e.newEvent(entity.EventPurchaseCompleted, LeadData{LeadID: "lead-1", Email: "ana@x.com", Name: "Ana"})
	instances, err := e.ProcessEvent(ctx, &event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp fora")
	assert.Equal(t, entity.EventError, event.Status)
	require.Len(t, instances, 2)
	assert.Equal(t, "a_email", instances[0].SequenceID)
	assert.Equal(t, entity.InstanceError, instances[0].Status)
	assert.Equal(t, "c_analytics", instances[1].SequenceID)
	assert.Equal(t, entity.InstanceCompleted, instances[1].Status)
}

func TestExecuteSequence_RunsUntilDone(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()

	seq := entity.AutomationSequence{
		SequenceID:   "manual",
		TriggerEvent: entity.EventLeadCapture,
		Active:       true,
		Steps: []entity.Step{
			{Type: entity.StepTrackAnalytics, Config: map[string]any{"event_name": "Lead"}},
			{Type: entity.StepUpdateCRM, Config: map[string]any{"action": "nota", "description": "novo lead"}},
		},
	}
	event := e.newEvent(entity.EventLeadCapture, LeadData{LeadID: "lead-1", Email: "ana@x.com", Name: "Ana"})

	inst, err := e.ExecuteSequence(ctx, seq, event)
	require.NoError(t, err)
	assert.Equal(t, "manual_"+event.EventID, inst.InstanceID)
	assert.Equal(t, "manual", inst.Event.SequenceID)
	assert.Equal(t, entity.InstanceCompleted, inst.Status)
	assert.Equal(t, 2, inst.StepsCompleted)
	assert.Nil(t, inst.NextRunAt)
	require.NotNil(t, inst.CompletedAt)

	stored, err := store.GetInstance(ctx, inst.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InstanceCompleted, stored.Status)
}

// ============ TESTES DE LOG E STATUS ============

func TestMemoryStore_LogCapIsFIFO(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < MaxLogEntries+10; i++ {
		require.NoError(t, store.AppendLog(ctx, entity.AutomationLogEntry{EventID: fmt.Sprintf("e%d", i)}))
	}

	logs, _ := store.ListLog(ctx)
	require.Len(t, logs, MaxLogEntries)
	assert.Equal(t, "e10", logs[0].EventID)
	assert.Equal(t, fmt.Sprintf("e%d", MaxLogEntries+9), logs[len(logs)-1].EventID)
}

func TestStatus_CountsInstances(t *testing.T) {
	e, _, clock := newTestEngine(t, WithChannels(Channels{Email: &recordingEmail{}}))
	ctx := context.Background()

	_, err := e.TriggerLeadCapture(ctx, anaLead())
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = e.TriggerPurchaseCompleted(ctx, map[string]any{"email": "bia@x.com"})
	require.NoError(t, err)

	st, err := e.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.ActiveSequences)
	assert.Equal(t, 2, st.RunningInstances)
	assert.Equal(t, 0, st.EventQueueSize)
	assert.Equal(t, 2, st.EventsProcessed)
	assert.Equal(t, "live", st.Channels["email"])
	assert.Equal(t, "log", st.Channels["whatsapp"])
}

func TestRenderer(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render("Olá {{nome}}!", map[string]any{"nome": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "Olá Ana!", out)

	out, err = r.Render("", nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = r.Render("{% if %}", nil)
	assert.Error(t, err)
}
