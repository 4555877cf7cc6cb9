package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/app"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/config"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/auth"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/http/handlers"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/queue"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/worker"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/logger"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/usecase"
)

func main() {
	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("❌ Configuração inválida")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Stores, bridge e engine
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Falha ao iniciar componentes")
	}
	defer a.Close()

	// 2. Auth
	tokens := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())
	authUC := usecase.NewAuthUseCase(a.Admins, tokens, auth.NewBcryptHasher())
	if err := authUC.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPasswordHash); err != nil {
		log.Fatal().Err(err).Msg("❌ Falha ao criar admin inicial")
	}

	// 3. UseCases
	sync := usecase.NewBackgroundSync(a.Bridge)
	var trigger usecase.LeadEventTrigger
	if a.Engine != nil {
		trigger = a.Engine
	}
	createLeadUC := usecase.NewCreateLeadUseCase(a.Leads, trigger, sync)
	updateLeadUC := usecase.NewUpdateLeadUseCase(a.Leads, trigger, sync)

	// 4. Workers
	go func() {
		if err := a.Bridge.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("❌ Watch do lead store encerrado")
		}
	}()

	if a.Engine != nil {
		go worker.NewSequenceScheduler(a.Engine, cfg.Automation.TickInterval()).Start(ctx)

		if a.RabbitMQ != nil {
			w := queue.NewWorker(a.RabbitMQ.Ch, a.Engine)
			go func() {
				if err := w.Start(ctx, queue.QueueName); err != nil && !errors.Is(err, context.Canceled) {
					log.Error().Err(err).Msg("❌ Worker da fila encerrado")
				}
			}()
		}
	}

	// 5. Handlers
	health := handlers.NewHealthHandler(a.Leads, cfg.Server.Version)
	health.Components["automation_engine"] = a.Engine != nil || cfg.Automation.Disabled
	health.Components["database_bridge"] = a.Bridge != nil
	if a.RabbitMQ != nil {
		health.RabbitMQ = a.RabbitMQ.Conn
	}
	if a.Redis != nil {
		health.Redis = handlers.PingFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}

	limiter := handlers.NewRateLimiter(10, time.Minute) // 10 req/min por IP
	go limiter.Run(ctx, 10*time.Minute)
	leadHandler := handlers.NewLeadHandler(createLeadUC, updateLeadUC, a.Leads, limiter)
	leadHandler.TrustProxyHeaders = cfg.Server.TrustProxyHeaders

	routerCfg := handlers.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Tokens:      tokens,
		Health:      health,
		Leads:       leadHandler,
		Auth:        handlers.NewAuthHandler(authUC),
		Sync:        handlers.NewSyncHandler(a.Bridge),
		Dashboard:   handlers.NewDashboardHandler(a.Leads, nil, a.Bridge),
		Automation:  handlers.NewAutomationHandler(nil),
		Webhooks:    handlers.NewWebhookHandler(nil),
	}
	if a.Engine != nil {
		routerCfg.Automation = handlers.NewAutomationHandler(a.Engine)
		routerCfg.Webhooks = handlers.NewWebhookHandler(a.Engine)
		routerCfg.Dashboard = handlers.NewDashboardHandler(a.Leads, a.Engine, a.Bridge)
	}

	// 6. Server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", cfg.Server.Version).
			Str("lead_store", cfg.LeadStore.Driver).Msg("🔥 Server rodando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("❌ Erro no servidor HTTP")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("⚠️ Encerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("❌ Shutdown do servidor falhou")
	}
}
