package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LeadStore  LeadStoreConfig  `yaml:"lead_store"`
	FileStore  FileStoreConfig  `yaml:"file_store"`
	Automation AutomationConfig `yaml:"automation"`
	RabbitMQ   RabbitMQConfig   `yaml:"rabbitmq"`
	Redis      RedisConfig      `yaml:"redis"`
	Mail       MailConfig       `yaml:"mail"`
	WhatsApp   WhatsAppConfig   `yaml:"whatsapp"`
	Kommo      KommoConfig      `yaml:"kommo"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Version     string   `yaml:"version"`
	// TrustProxyHeaders só deve ser ligado atrás de um proxy que reescreve
	// X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// LeadStoreConfig seleciona o backend autoritativo dos leads.
// Driver: "surrealdb" (padrão), "postgres" ou "memory".
type LeadStoreConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	SurrealURL  string `yaml:"surreal_url"`
	Namespace   string `yaml:"namespace"`
	Database    string `yaml:"database"`
	User        string `yaml:"user"`
	Pass        string `yaml:"pass"`
}

// FileStoreConfig: Backend "local" ou "s3".
type FileStoreConfig struct {
	Backend    string `yaml:"backend"`
	Dir        string `yaml:"dir"`
	LeadsFile  string `yaml:"leads_file"`
	ImportFile string `yaml:"import_file"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Region   string `yaml:"s3_region"`
	S3Prefix   string `yaml:"s3_prefix"`
}

type AutomationConfig struct {
	Disabled            bool   `yaml:"disabled"`
	TickIntervalSeconds int    `yaml:"tick_interval_seconds"`
	StateBackend        string `yaml:"state_backend"`
}

func (c AutomationConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

type RabbitMQConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MailConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

func (c MailConfig) Enabled() bool { return c.Host != "" }

type WhatsAppConfig struct {
	AccessToken string `yaml:"access_token"`
	PhoneID     string `yaml:"phone_id"`
	BaseURL     string `yaml:"base_url"`
}

func (c WhatsAppConfig) Enabled() bool { return c.AccessToken != "" && c.PhoneID != "" }

type KommoConfig struct {
	APIToken string `yaml:"api_token"`
	BaseURL  string `yaml:"base_url"`
}

func (c KommoConfig) Enabled() bool { return c.APIToken != "" && c.BaseURL != "" }

// AuthConfig nunca carrega senha em texto puro: o admin inicial, quando
// existir, vem como hash bcrypt.
type AuthConfig struct {
	JWTSecret             string `yaml:"jwt_secret"`
	TokenTTLHours         int    `yaml:"token_ttl_hours"`
	BootstrapEmail        string `yaml:"bootstrap_email"`
	BootstrapPasswordHash string `yaml:"bootstrap_password_hash"`
}

func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load lê o YAML (opcional) e aplica defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("erro ao ler config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("erro ao parsear config %s: %w", path, err)
			}
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadFromEnv carrega .env (se existir), o YAML e depois as variáveis de ambiente.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	overrideString(&cfg.LeadStore.Driver, "LEAD_STORE_DRIVER")
	overrideString(&cfg.LeadStore.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.LeadStore.SurrealURL, "SURREALDB_URL")
	overrideString(&cfg.LeadStore.Namespace, "SURREALDB_NAMESPACE")
	overrideString(&cfg.LeadStore.Database, "SURREALDB_DATABASE")
	overrideString(&cfg.LeadStore.User, "SURREALDB_USER")
	overrideString(&cfg.LeadStore.Pass, "SURREALDB_PASS")

	overrideString(&cfg.FileStore.Backend, "FILE_STORE_BACKEND")
	overrideString(&cfg.FileStore.Dir, "FILE_STORE_DIR")
	overrideString(&cfg.FileStore.LeadsFile, "FILE_STORE_LEADS_FILE")
	overrideString(&cfg.FileStore.ImportFile, "FILE_STORE_IMPORT_FILE")
	overrideString(&cfg.FileStore.S3Bucket, "FILE_STORE_S3_BUCKET")
	overrideString(&cfg.FileStore.S3Region, "AWS_REGION")
	overrideString(&cfg.FileStore.S3Prefix, "FILE_STORE_S3_PREFIX")

	overrideInt(&cfg.Automation.TickIntervalSeconds, "AUTOMATION_TICK_SECONDS")
	overrideString(&cfg.Automation.StateBackend, "AUTOMATION_STATE_BACKEND")
	overrideBool(&cfg.Automation.Disabled, "AUTOMATION_DISABLED")

	overrideInt(&cfg.Server.Port, "PORT")
	overrideBool(&cfg.Server.TrustProxyHeaders, "TRUST_PROXY_HEADERS")
	overrideString(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	overrideString(&cfg.Redis.Addr, "REDIS_ADDR")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")

	overrideString(&cfg.Mail.Host, "MAIL_HOST")
	overrideInt(&cfg.Mail.Port, "MAIL_PORT")
	overrideString(&cfg.Mail.User, "MAIL_USER")
	overrideString(&cfg.Mail.Pass, "MAIL_PASS")
	overrideString(&cfg.Mail.From, "MAIL_FROM")

	overrideString(&cfg.WhatsApp.AccessToken, "WHATSAPP_ACCESS_TOKEN")
	overrideString(&cfg.WhatsApp.PhoneID, "WHATSAPP_PHONE_ID")
	overrideString(&cfg.Kommo.APIToken, "KOMMO_API_TOKEN")
	overrideString(&cfg.Kommo.BaseURL, "KOMMO_BASE_URL")

	overrideString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	overrideInt(&cfg.Auth.TokenTTLHours, "JWT_TTL_HOURS")
	overrideString(&cfg.Auth.BootstrapEmail, "ADMIN_BOOTSTRAP_EMAIL")
	overrideString(&cfg.Auth.BootstrapPasswordHash, "ADMIN_BOOTSTRAP_PASSWORD_HASH")

	overrideString(&cfg.Log.Level, "LOG_LEVEL")
	overrideBool(&cfg.Log.Pretty, "LOG_PRETTY")

	return cfg, nil
}

// Validate checks what the api needs before it starts serving.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET não configurado")
	}
	switch c.LeadStore.Driver {
	case "surrealdb":
		if c.LeadStore.SurrealURL == "" {
			return errors.New("SURREALDB_URL não configurado")
		}
	case "postgres":
		if c.LeadStore.DatabaseURL == "" {
			return errors.New("DATABASE_URL não configurado")
		}
	case "memory":
	default:
		return fmt.Errorf("lead store driver desconhecido: %s", c.LeadStore.Driver)
	}
	if c.FileStore.Backend == "s3" && c.FileStore.S3Bucket == "" {
		return errors.New("FILE_STORE_S3_BUCKET não configurado")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173", "*"}
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}
	if cfg.LeadStore.Driver == "" {
		cfg.LeadStore.Driver = "surrealdb"
	}
	if cfg.LeadStore.Namespace == "" {
		cfg.LeadStore.Namespace = "funnel"
	}
	if cfg.LeadStore.Database == "" {
		cfg.LeadStore.Database = "leads"
	}
	if cfg.FileStore.Backend == "" {
		cfg.FileStore.Backend = "local"
	}
	if cfg.FileStore.Dir == "" {
		cfg.FileStore.Dir = "data"
	}
	if cfg.FileStore.LeadsFile == "" {
		cfg.FileStore.LeadsFile = "leads_projection.json"
	}
	if cfg.Automation.TickIntervalSeconds == 0 {
		cfg.Automation.TickIntervalSeconds = 30
	}
	if cfg.Automation.StateBackend == "" {
		cfg.Automation.StateBackend = "file"
	}
	if cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = "nao-responda@funil.local"
	}
	if cfg.WhatsApp.BaseURL == "" {
		cfg.WhatsApp.BaseURL = "https://graph.facebook.com/v18.0"
	}
	if cfg.Auth.TokenTTLHours == 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
