package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type AdminRepository struct {
	DB *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{DB: db}
}

func (r *AdminRepository) Create(ctx context.Context, a *entity.AdminUser) error {
	query := `
		INSERT INTO admin_users (id, email, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.DB.ExecContext(ctx, query, a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return entity.ErrAdminExists
		}
		return fmt.Errorf("inserir admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) FindByEmail(ctx context.Context, email string) (*entity.AdminUser, error) {
	var a entity.AdminUser
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM admin_users WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&n)
	return n, err
}

var _ entity.AdminRepositoryInterface = (*AdminRepository)(nil)
