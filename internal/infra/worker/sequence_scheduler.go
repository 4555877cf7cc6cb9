package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Ticker é implementado pelo automation.Engine.
type Ticker interface {
	Tick(ctx context.Context) (int, error)
}

// SequenceScheduler avança periodicamente as instâncias cuja espera venceu.
type SequenceScheduler struct {
	engine       Ticker
	tickInterval time.Duration
	logger       zerolog.Logger
}

func NewSequenceScheduler(engine Ticker, tickInterval time.Duration) *SequenceScheduler {
	if tickInterval <= 0 {
		tickInterval = 30 * time.Second
	}
	return &SequenceScheduler{
		engine:       engine,
		tickInterval: tickInterval,
		logger:       log.With().Str("component", "sequence_scheduler").Logger(),
	}
}

// Start roda um tick imediato (retoma o que ficou pendente antes de um
// restart) e depois um por intervalo, até ctx ser cancelado.
func (w *SequenceScheduler) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.tickInterval).Msg("🕒 Scheduler de sequências iniciado")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("⚠️ Scheduler de sequências encerrado")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SequenceScheduler) tick(ctx context.Context) {
	n, err := w.engine.Tick(ctx)
	if err != nil {
		w.logger.Error().Err(err).Int("advanced", n).Msg("❌ Erro no tick do scheduler")
		return
	}
	if n > 0 {
		w.logger.Debug().Int("advanced", n).Msg("⏱️ Instâncias avançadas")
	}
}
