package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAdminNotFound = errors.New("admin não encontrado")
	ErrAdminExists   = errors.New("email já cadastrado")
)

type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type AdminRepositoryInterface interface {
	Create(ctx context.Context, admin *AdminUser) error
	FindByEmail(ctx context.Context, email string) (*AdminUser, error)
	Count(ctx context.Context) (int, error)
}
