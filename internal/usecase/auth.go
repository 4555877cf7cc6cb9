package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
)

const minPasswordLength = 8

// AuthUseCase autentica admins contra o credential store.
type AuthUseCase struct {
	Admins entity.AdminRepositoryInterface
	Tokens TokenIssuer
	Hasher PasswordHasher
}

func NewAuthUseCase(admins entity.AdminRepositoryInterface, tokens TokenIssuer, hasher PasswordHasher) *AuthUseCase {
	return &AuthUseCase{Admins: admins, Tokens: tokens, Hasher: hasher}
}

func (uc *AuthUseCase) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	unauthorized := NewDomainError(CodeUnauthorized, "Email ou senha incorretos")

	admin, err := uc.Admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, entity.ErrAdminNotFound) {
			return nil, unauthorized
		}
		return nil, NewUpstreamError("erro ao buscar admin", err)
	}

	if err := uc.Hasher.Compare(admin.PasswordHash, input.Password); err != nil {
		log.Warn().Str("email", logger.MaskEmail(email)).Msg("🔒 Tentativa de login inválida")
		return nil, unauthorized
	}

	token, exp, err := uc.Tokens.Issue(admin.Email)
	if err != nil {
		return nil, NewUpstreamError("erro ao gerar token", err)
	}

	return &LoginOutput{AccessToken: token, TokenType: "bearer", ExpiresAt: exp, Admin: admin}, nil
}

// RegisterAllowed: cadastro é aberto só enquanto não existe nenhum admin.
func (uc *AuthUseCase) RegisterAllowed(ctx context.Context, authenticated bool) (bool, error) {
	if authenticated {
		return true, nil
	}
	n, err := uc.Admins.Count(ctx)
	if err != nil {
		return false, NewUpstreamError("erro ao contar admins", err)
	}
	return n == 0, nil
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterAdminInput, authenticated bool) (*entity.AdminUser, error) {
	allowed, err := uc.RegisterAllowed(ctx, authenticated)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewDomainError(CodeUnauthorized, "Autenticação necessária")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !isValidEmail(email) {
		return nil, NewDomainError(CodeValidation, "email: is invalid")
	}
	if len(input.Password) < minPasswordLength {
		return nil, NewDomainError(CodeValidation, "password: must have at least 8 characters")
	}

	hash, err := uc.Hasher.Hash(input.Password)
	if err != nil {
		return nil, NewUpstreamError("erro ao gerar hash", err)
	}

	admin := &entity.AdminUser{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.Admins.Create(ctx, admin); err != nil {
		if errors.Is(err, entity.ErrAdminExists) {
			return nil, NewDomainError(CodeConflict, "Email já cadastrado")
		}
		return nil, NewUpstreamError("erro ao salvar admin", err)
	}

	log.Info().Str("email", logger.MaskEmail(email)).Msg("👤 Admin cadastrado")
	return admin, nil
}

func (uc *AuthUseCase) Me(ctx context.Context, email string) (*entity.AdminUser, error) {
	admin, err := uc.Admins.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, entity.ErrAdminNotFound) {
			return nil, NewDomainError(CodeUnauthorized, "Usuário não encontrado")
		}
		return nil, NewUpstreamError("erro ao buscar admin", err)
	}
	return admin, nil
}

// EnsureBootstrapAdmin cria o admin inicial a partir de um hash bcrypt
// configurado. Não faz nada se o email já existir.
func (uc *AuthUseCase) EnsureBootstrapAdmin(ctx context.Context, email, passwordHash string) error {
	if email == "" || passwordHash == "" {
		return nil
	}
	email = strings.ToLower(strings.TrimSpace(email))

	_, err := uc.Admins.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entity.ErrAdminNotFound) {
		return err
	}

	err = uc.Admins.Create(ctx, &entity.AdminUser{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         "Administrador",
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, entity.ErrAdminExists) {
		return err
	}
	log.Info().Str("email", logger.MaskEmail(email)).Msg("👤 Admin bootstrap garantido")
	return nil
}
