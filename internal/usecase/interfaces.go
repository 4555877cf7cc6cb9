package usecase

import (
	"context"
	"time"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/bridge"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

type LeadEventTrigger interface {
	TriggerLeadCapture(ctx context.Context, lead *entity.Lead) (*automation.TriggerResult, error)
	TriggerStatusChange(ctx context.Context, lead *entity.Lead, from, to entity.LeadStatus) (*automation.TriggerResult, error)
}

type ProjectionSyncer interface {
	SyncPrimaryToSecondary(ctx context.Context) (*bridge.SyncResult, error)
}

type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}
