package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// BackgroundSync dispara um sync primário→secundário sem bloquear a request.
// Run pode ser trocado em testes para execução síncrona.
type BackgroundSync struct {
	Syncer  ProjectionSyncer
	Timeout time.Duration
	Run     func(func())
}

func NewBackgroundSync(syncer ProjectionSyncer) *BackgroundSync {
	return &BackgroundSync{
		Syncer:  syncer,
		Timeout: 2 * time.Minute,
		Run:     func(fn func()) { go fn() },
	}
}

// Schedule devolve o sync_status reportado ao cliente.
func (b *BackgroundSync) Schedule(ctx context.Context, reason string) string {
	if b == nil || b.Syncer == nil {
		return "disabled"
	}

	base := context.WithoutCancel(ctx)
	b.Run(func() {
		ctx, cancel := context.WithTimeout(base, b.Timeout)
		defer cancel()

		res, err := b.Syncer.SyncPrimaryToSecondary(ctx)
		if err != nil {
			log.Error().Err(err).Str("component", "sync").Str("reason", reason).Msg("❌ Sync em background falhou")
			return
		}
		log.Debug().Str("component", "sync").Str("reason", reason).
			Int("total", res.Stats.TotalLeads).Msg("🔄 Sync em background concluído")
	})
	return "scheduled"
}
