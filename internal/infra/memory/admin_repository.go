package memory

import (
	"context"
	"sync"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type AdminRepository struct {
	mu     sync.RWMutex
	admins map[string]*entity.AdminUser
}

func NewAdminRepository() *AdminRepository {
	return &AdminRepository{admins: make(map[string]*entity.AdminUser)}
}

func (r *AdminRepository) Create(ctx context.Context, admin *entity.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[admin.Email]; ok {
		return entity.ErrAdminExists
	}
	c := *admin
	r.admins[admin.Email] = &c
	return nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*entity.AdminUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.admins[email]
	if !ok {
		return nil, entity.ErrAdminNotFound
	}
	c := *a
	return &c, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.admins), nil
}
