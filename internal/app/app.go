// Package app monta os componentes a partir da configuração. É usado pela
// api e pela CLI para que ambas enxerguem os mesmos stores.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/surrealdb/surrealdb.go"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/automation"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/bridge"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/config"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/database"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/filestore"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/integration/kommo"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/integration/whatsapp"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/lock"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/mail"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/memory"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/queue"
	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/infra/surreal"
)

const (
	bridgeLockKey     = "lock:bridge_sync"
	automationLockKey = "lock:automation_tick"
)

type App struct {
	Config *config.Config

	Leads  entity.LeadRepositoryInterface
	Admins entity.AdminRepositoryInterface

	DB       *sql.DB
	Surreal  *surrealdb.DB
	Redis    *redis.Client
	RabbitMQ *queue.RabbitMQ
	Producer *queue.RabbitMQProducer

	Projection *filestore.LeadFile
	Bridge     *bridge.Bridge
	Engine     *automation.Engine

	closers []func()
}

// Build conecta os stores e monta bridge e engine. Falha no Lead Store é
// fatal; RabbitMQ e Redis são opcionais e só geram warning.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openLeadStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	newBlob, err := a.blobFactory(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("⚠️ Redis indisponível, usando apenas lock local")
			a.Redis.Close()
			a.Redis = nil
		} else {
			a.closers = append(a.closers, func() { a.Redis.Close() })
		}
	}

	if cfg.RabbitMQ.URL != "" {
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQ.URL)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ RabbitMQ indisponível, eventos não serão publicados")
		} else {
			a.RabbitMQ = rmq
			a.Producer = queue.NewProducer(rmq.Ch)
			a.closers = append(a.closers, func() { rmq.Close() })
		}
	}

	a.Projection = filestore.NewLeadFile(newBlob(cfg.FileStore.LeadsFile))
	bridgeOpts := []bridge.Option{}
	if l := lock.New(a.Redis, a.DB, bridgeLockKey, 5*time.Minute); l != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithLocker(l))
	}
	if cfg.FileStore.ImportFile != "" {
		bridgeOpts = append(bridgeOpts, bridge.WithImportStore(filestore.NewLeadFile(newBlob(cfg.FileStore.ImportFile))))
	}
	a.Bridge, err = bridge.New(ctx, a.Leads, a.Projection, bridgeOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}

	if !cfg.Automation.Disabled {
		if err := a.buildEngine(ctx, newBlob); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) openLeadStore(ctx context.Context) error {
	cfg := a.Config.LeadStore

	openPostgres := func() error {
		db, err := database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("conectar ao postgres: %w", err)
		}
		a.DB = db
		a.closers = append(a.closers, func() { db.Close() })
		return database.Migrate(ctx, db)
	}

	switch cfg.Driver {
	case "postgres":
		if err := openPostgres(); err != nil {
			return err
		}
		a.Leads = database.NewLeadRepository(a.DB, cfg.DatabaseURL)
		a.Admins = database.NewAdminRepository(a.DB)

	case "surrealdb":
		sdb, err := surreal.Connect(ctx, surreal.Config{
			URL:       cfg.SurrealURL,
			Namespace: cfg.Namespace,
			Database:  cfg.Database,
			User:      cfg.User,
			Pass:      cfg.Pass,
		})
		if err != nil {
			return err
		}
		a.Surreal = sdb
		a.closers = append(a.closers, func() { sdb.Close(context.Background()) })
		a.Leads = surreal.NewLeadRepository(sdb)

		// admins ficam no postgres quando houver, senão em memória
		if cfg.DatabaseURL != "" {
			if err := openPostgres(); err != nil {
				return err
			}
			a.Admins = database.NewAdminRepository(a.DB)
		} else {
			a.Admins = memory.NewAdminRepository()
		}

	case "memory":
		a.Leads = memory.NewLeadRepository()
		a.Admins = memory.NewAdminRepository()

	default:
		return fmt.Errorf("lead store driver desconhecido: %s", cfg.Driver)
	}
	return nil
}

func (a *App) blobFactory(ctx context.Context) (func(name string) filestore.Blob, error) {
	cfg := a.Config.FileStore
	switch cfg.Backend {
	case "s3":
		client, err := filestore.NewS3Client(ctx, cfg.S3Region)
		if err != nil {
			return nil, err
		}
		return func(name string) filestore.Blob {
			return filestore.NewS3Blob(client, cfg.S3Bucket, cfg.S3Prefix, name)
		}, nil
	case "local", "":
		return func(name string) filestore.Blob {
			return filestore.NewLocalBlob(filepath.Join(cfg.Dir, name))
		}, nil
	}
	return nil, fmt.Errorf("file store backend desconhecido: %s", cfg.Backend)
}

func (a *App) buildEngine(ctx context.Context, newBlob func(string) filestore.Blob) error {
	cfg := a.Config

	var store automation.Store
	switch cfg.Automation.StateBackend {
	case "memory":
		store = automation.NewMemoryStore()
	default:
		store = filestore.NewAutomationStoreFor(newBlob)
	}

	var channels automation.Channels
	if cfg.Mail.Enabled() {
		channels.Email = mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
	}
	if cfg.WhatsApp.Enabled() {
		channels.WhatsApp = mail.NewWhatsAppSender(
			whatsapp.NewClient(cfg.WhatsApp.BaseURL, cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneID))
	}
	if cfg.Kommo.Enabled() {
		channels.CRM = kommo.NewClient(cfg.Kommo.BaseURL, cfg.Kommo.APIToken)
	}

	opts := []automation.Option{automation.WithChannels(channels)}
	if a.Producer != nil {
		opts = append(opts, automation.WithPublisher(a.Producer))
	}
	if l := lock.New(a.Redis, a.DB, automationLockKey, time.Minute); l != nil {
		opts = append(opts, automation.WithLocker(l))
	}

	a.Engine = automation.NewEngine(store, opts...)
	n, err := a.Engine.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("semear sequências: %w", err)
	}
	if n > 0 {
		log.Info().Int("added", n).Msg("🌱 Sequências padrão criadas")
	}
	return nil
}

// Close libera as conexões na ordem inversa da abertura.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// RequireEngine é usado pelos comandos que dependem da automação.
func (a *App) RequireEngine() (*automation.Engine, error) {
	if a.Engine == nil {
		return nil, errors.New("automação desabilitada (AUTOMATION_DISABLED)")
	}
	return a.Engine, nil
}
