package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/bridge"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/auth"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/memory"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

// MockLeadEventTrigger
type MockLeadEventTrigger struct {
	mock.Mock
}

func (m *MockLeadEventTrigger) TriggerLeadCapture(ctx context.Context, lead *entity.Lead) (*automation.TriggerResult, error) {
	args := m.Called(ctx, lead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*automation.TriggerResult), args.Error(1)
}

func (m *MockLeadEventTrigger) TriggerStatusChange(ctx context.Context, lead *entity.Lead, from, to entity.LeadStatus) (*automation.TriggerResult, error) {
	args := m.Called(ctx, lead, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*automation.TriggerResult), args.Error(1)
}

// MockProjectionSyncer
type MockProjectionSyncer struct {
	mock.Mock
}

func (m *MockProjectionSyncer) SyncPrimaryToSecondary(ctx context.Context) (*bridge.SyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bridge.SyncResult), args.Error(1)
}

type failingLeadRepo struct {
	*memory.LeadRepository
	err error
}

func (r failingLeadRepo) Create(ctx context.Context, lead *entity.Lead) error { return r.err }
func (r failingLeadRepo) Update(ctx context.Context, lead *entity.Lead) error { return r.err }

func inlineSync(syncer usecase.ProjectionSyncer) *usecase.BackgroundSync {
	s := usecase.NewBackgroundSync(syncer)
	s.Run = func(fn func()) { fn() }
	return s
}

func strPtr(s string) *string { return &s }

func seedLead(t *testing.T, repo *memory.LeadRepository) *entity.Lead {
	t.Helper()
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := &entity.Lead{
		ID: "l1", Nome: "Ana", Email: "ana@x.com", Telefone: "11900000000",
		Status: entity.StatusNovo, Fonte: "landing_page", Timestamp: ts, UpdatedAt: ts,
	}
	require.NoError(t, repo.Create(context.Background(), lead))
	return lead
}

// ============ TESTES DE CREATE LEAD ============

func TestCreateLead_Success(t *testing.T) {
	repo := memory.NewLeadRepository()
	trigger := new(MockLeadEventTrigger)
	syncer := new(MockProjectionSyncer)

	trigger.On("TriggerLeadCapture", mock.Anything, mock.AnythingOfType("*entity.Lead")).
		Return(&automation.TriggerResult{Instances: []*entity.SequenceInstance{{SequenceID: "welcome_7_day"}}}, nil)
	syncer.On("SyncPrimaryToSecondary", mock.Anything).Return(&bridge.SyncResult{Success: true}, nil)

	uc := usecase.NewCreateLeadUseCase(repo, trigger, inlineSync(syncer))
	uc.Now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	out, err := uc.Execute(context.Background(), usecase.CreateLeadInput{
		Nome: "  Ana Souza ", Email: "ana@x.com", Telefone: "11900000000",
	})
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", out.Lead.Nome)
	assert.Equal(t, entity.StatusNovo, out.Lead.Status)
	assert.Equal(t, usecase.DefaultLeadSource, out.Lead.Fonte)
	assert.NotEmpty(t, out.Lead.ID)
	assert.True(t, out.AutomationTriggered)
	assert.Equal(t, []string{"welcome_7_day"}, out.SequencesStarted)
	assert.Equal(t, "scheduled", out.SyncStatus)

	stored, err := repo.FindByID(context.Background(), out.Lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", stored.Email)

	trigger.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

func TestCreateLead_AutomationFailureDoesNotFail(t *testing.T) {
	repo := memory.NewLeadRepository()
	trigger := new(MockLeadEventTrigger)
	trigger.On("TriggerLeadCapture", mock.Anything, mock.Anything).Return(nil, errors.New("smtp fora"))

	uc := usecase.NewCreateLeadUseCase(repo, trigger, nil)
	out, err := uc.Execute(context.Background(), usecase.CreateLeadInput{
		Nome: "Ana", Email: "ana@x.com", Telefone: "11900000000", Fonte: "instagram",
	})
	require.NoError(t, err)
	assert.False(t, out.AutomationTriggered)
	assert.Equal(t, "instagram", out.Lead.Fonte)
	assert.Equal(t, "disabled", out.SyncStatus)
}

func TestCreateLead_ValidationAndStoreError(t *testing.T) {
	repo := memory.NewLeadRepository()
	uc := usecase.NewCreateLeadUseCase(repo, nil, nil)

	_, err := uc.Execute(context.Background(), usecase.CreateLeadInput{Nome: "A", Email: "x", Telefone: "123"})
	require.Error(t, err)
	assert.Equal(t, usecase.CodeValidation, usecase.DomainCode(err))

	n, _ := repo.Count(context.Background())
	assert.Equal(t, 0, n)

	failing := usecase.NewCreateLeadUseCase(failingLeadRepo{memory.NewLeadRepository(), errors.New("db fora")}, nil, nil)
	_, err = failing.Execute(context.Background(), usecase.CreateLeadInput{Nome: "Ana", Email: "ana@x.com", Telefone: "11900000000"})
	require.Error(t, err)
	assert.True(t, usecase.IsTechnicalError(err))
	assert.False(t, usecase.IsDomainError(err))
}

func TestValidateCreateLeadInput_Bounds(t *testing.T) {
	long := make([]rune, 101)
	for i := range long {
		long[i] = 'a'
	}
	errs := usecase.ValidateCreateLeadInput(usecase.CreateLeadInput{
		Nome: string(long), Email: "ana@x.com", Telefone: "123456789012345678901",
	})
	require.Len(t, errs, 2)
	assert.Equal(t, "nome", errs[0].Field)
	assert.Equal(t, "telefone", errs[1].Field)

	assert.Empty(t, usecase.ValidateCreateLeadInput(usecase.CreateLeadInput{
		Nome: "Jô", Email: "jo@x.com.br", Telefone: "1190000000",
	}))
}

// ============ TESTES DE UPDATE LEAD ============

func TestUpdateLead_StatusChangeTriggers(t *testing.T) {
	repo := memory.NewLeadRepository()
	seedLead(t, repo)
	trigger := new(MockLeadEventTrigger)
	syncer := new(MockProjectionSyncer)

	trigger.On("TriggerStatusChange", mock.Anything, mock.Anything, entity.StatusNovo, entity.StatusQualificado).
		Return(&automation.TriggerResult{StatusTriggers: []string{"nurture_sequence"}}, nil)
	syncer.On("SyncPrimaryToSecondary", mock.Anything).Return(&bridge.SyncResult{Success: true}, nil)

	uc := usecase.NewUpdateLeadUseCase(repo, trigger, inlineSync(syncer))
	out, err := uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{
		Status: strPtr("qualificado"), Notas: strPtr("ligar amanhã"),
	})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.True(t, out.StatusChanged)

	stored, _ := repo.FindByID(context.Background(), "l1")
	assert.Equal(t, entity.StatusQualificado, stored.Status)
	assert.Equal(t, "ligar amanhã", stored.Notas)
	assert.True(t, stored.UpdatedAt.After(stored.Timestamp))

	trigger.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

func TestUpdateLead_NoStatusChangeNoTrigger(t *testing.T) {
	repo := memory.NewLeadRepository()
	seedLead(t, repo)
	trigger := new(MockLeadEventTrigger)

	uc := usecase.NewUpdateLeadUseCase(repo, trigger, nil)

	out, err := uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{Notas: strPtr("nota")})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.False(t, out.StatusChanged)

	// mesmo status e mesma nota: nada muda
	out, err = uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{Status: strPtr("novo"), Notas: strPtr("nota")})
	require.NoError(t, err)
	assert.False(t, out.Changed)

	trigger.AssertNotCalled(t, "TriggerStatusChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateLead_PaddedFonteIsNotAChange(t *testing.T) {
	repo := memory.NewLeadRepository()
	seeded := seedLead(t, repo)
	syncer := new(MockProjectionSyncer)

	uc := usecase.NewUpdateLeadUseCase(repo, nil, inlineSync(syncer))

	out, err := uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{Fonte: strPtr("  landing_page ")})
	require.NoError(t, err)
	assert.False(t, out.Changed)

	stored, err := repo.FindByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, stored.UpdatedAt.Equal(seeded.UpdatedAt), "nenhuma escrita")
	syncer.AssertNotCalled(t, "SyncPrimaryToSecondary", mock.Anything)

	syncer.On("SyncPrimaryToSecondary", mock.Anything).Return(&bridge.SyncResult{Success: true}, nil)
	out, err = uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{Fonte: strPtr(" instagram ")})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, "instagram", out.Lead.Fonte)
}

func TestUpdateLead_NotFoundHasNoSideEffects(t *testing.T) {
	repo := memory.NewLeadRepository()
	trigger := new(MockLeadEventTrigger)
	syncer := new(MockProjectionSyncer)

	uc := usecase.NewUpdateLeadUseCase(repo, trigger, inlineSync(syncer))
	_, err := uc.Execute(context.Background(), "nao-existe", usecase.UpdateLeadInput{Status: strPtr("vendido")})
	require.Error(t, err)
	assert.Equal(t, usecase.CodeNotFound, usecase.DomainCode(err))

	trigger.AssertNotCalled(t, "TriggerStatusChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	syncer.AssertNotCalled(t, "SyncPrimaryToSecondary", mock.Anything)
}

func TestUpdateLead_Validation(t *testing.T) {
	uc := usecase.NewUpdateLeadUseCase(memory.NewLeadRepository(), nil, nil)

	_, err := uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{})
	assert.Equal(t, usecase.CodeValidation, usecase.DomainCode(err))

	_, err = uc.Execute(context.Background(), "l1", usecase.UpdateLeadInput{Status: strPtr("arquivado")})
	assert.Equal(t, usecase.CodeValidation, usecase.DomainCode(err))
}

// ============ TESTES DE BACKGROUND SYNC ============

func TestBackgroundSync_DetachedFromRequest(t *testing.T) {
	syncer := new(MockProjectionSyncer)
	syncer.On("SyncPrimaryToSecondary", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	})).Return(nil, errors.New("falhou")).Once()

	s := inlineSync(syncer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, "scheduled", s.Schedule(ctx, "teste"))
	syncer.AssertExpectations(t)

	var nilSync *usecase.BackgroundSync
	assert.Equal(t, "disabled", nilSync.Schedule(context.Background(), "teste"))
}

// ============ TESTES DE AUTH ============

func newAuthUC() (*usecase.AuthUseCase, *memory.AdminRepository) {
	admins := memory.NewAdminRepository()
	return usecase.NewAuthUseCase(admins, auth.NewJWTIssuer("s3gredo", time.Hour), &auth.BcryptHasher{Cost: bcrypt.MinCost}), admins
}

func TestAuth_RegisterBootstrapAndLogin(t *testing.T) {
	ctx := context.Background()
	uc, _ := newAuthUC()

	allowed, err := uc.RegisterAllowed(ctx, false)
	require.NoError(t, err)
	assert.True(t, allowed)

	admin, err := uc.Register(ctx, usecase.RegisterAdminInput{Email: " ADM@x.com ", Name: "Admin", Password: "senha-forte"}, false)
	require.NoError(t, err)
	assert.Equal(t, "adm@x.com", admin.Email)
	assert.NotEqual(t, "senha-forte", admin.PasswordHash)

	_, err = uc.Register(ctx, usecase.RegisterAdminInput{Email: "b@x.com", Password: "senha-forte"}, false)
	assert.Equal(t, usecase.CodeUnauthorized, usecase.DomainCode(err))

	_, err = uc.Register(ctx, usecase.RegisterAdminInput{Email: "b@x.com", Password: "curta"}, true)
	assert.Equal(t, usecase.CodeValidation, usecase.DomainCode(err))

	_, err = uc.Register(ctx, usecase.RegisterAdminInput{Email: "adm@x.com", Password: "senha-forte"}, true)
	assert.Equal(t, usecase.CodeConflict, usecase.DomainCode(err))

	out, err := uc.Login(ctx, usecase.LoginInput{Email: "adm@x.com", Password: "senha-forte"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", out.TokenType)
	assert.NotEmpty(t, out.AccessToken)

	_, err = uc.Login(ctx, usecase.LoginInput{Email: "adm@x.com", Password: "errada"})
	assert.Equal(t, usecase.CodeUnauthorized, usecase.DomainCode(err))

	_, err = uc.Login(ctx, usecase.LoginInput{Email: "ninguem@x.com", Password: "senha-forte"})
	assert.Equal(t, usecase.CodeUnauthorized, usecase.DomainCode(err))

	me, err := uc.Me(ctx, "adm@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Admin", me.Name)
}

func TestAuth_EnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	uc, admins := newAuthUC()

	hash, err := bcrypt.GenerateFromPassword([]byte("senha-inicial"), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, uc.EnsureBootstrapAdmin(ctx, "", ""))
	n, _ := admins.Count(ctx)
	assert.Equal(t, 0, n)

	require.NoError(t, uc.EnsureBootstrapAdmin(ctx, "Root@x.com", string(hash)))
	require.NoError(t, uc.EnsureBootstrapAdmin(ctx, "root@x.com", string(hash)))
	n, _ = admins.Count(ctx)
	assert.Equal(t, 1, n)

	_, err = uc.Login(ctx, usecase.LoginInput{Email: "root@x.com", Password: "senha-inicial"})
	assert.NoError(t, err)
}
