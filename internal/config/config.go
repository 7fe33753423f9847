package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Persistence backends
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// AI providers
const (
	ProviderGemini = "gemini"
	ProviderAzure  = "azure"
	ProviderEcho   = "echo"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Persistence PersistenceConfig
	Firestore   FirestoreConfig
	Gemini      GeminiConfig
	Azure       AzureConfig
	AI          AIConfig
	Chat        ChatConfig
	Identity    IdentityConfig
	LocalState  LocalStateConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PersistenceConfig selects where conversations and profiles live
type PersistenceConfig struct {
	Backend string
}

// FirestoreConfig holds Cloud Firestore configuration
type FirestoreConfig struct {
	ProjectID string
}

// GeminiConfig holds Google Gemini configuration. A project selects Vertex AI.
type GeminiConfig struct {
	APIKey     string
	Project    string
	Location   string
	ChatModel  string
	ImageModel string
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	OpenAI  OpenAIConfig
	Storage StorageConfig
}

// OpenAIConfig holds Azure OpenAI configuration
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
}

// StorageConfig holds Azure Blob Storage configuration
type StorageConfig struct {
	AccountName string
	AccountKey  string
	Container   string
}

// Enabled reports whether blob storage credentials are configured
func (s StorageConfig) Enabled() bool {
	return s.AccountName != "" && s.AccountKey != ""
}

// AIConfig selects the AI gateway
type AIConfig struct {
	Provider string
}

// ChatConfig tunes the session manager
type ChatConfig struct {
	HistoryLimit     int
	FallbackReply    string
	DebounceInterval time.Duration
	SessionIdleTTL   time.Duration
	EvictionSchedule string
}

// IdentityConfig tunes the profile cache
type IdentityConfig struct {
	CacheTTL      time.Duration
	SweepSchedule string
}

// LocalStateConfig holds where per-user device state is written
type LocalStateConfig struct {
	Directory string
}

// SecurityConfig holds the message content key
type SecurityConfig struct {
	ContentKey string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads .env files, then environment variables and defaults
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)
	v.SetDefault("server.allowedorigins", []string{"*"})

	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	v.SetDefault("persistence.backend", BackendPostgres)

	v.SetDefault("gemini.location", "us-central1")
	v.SetDefault("gemini.chatmodel", "gemini-2.5-flash")
	v.SetDefault("gemini.imagemodel", "gemini-2.5-flash-image")

	v.SetDefault("azure.storage.container", "swasth-ai")

	v.SetDefault("ai.provider", ProviderGemini)

	v.SetDefault("chat.historylimit", 10)
	v.SetDefault("chat.fallbackreply", "I'm sorry, I couldn't process your request. Please try again.")
	v.SetDefault("chat.debounceinterval", 250*time.Millisecond)
	v.SetDefault("chat.sessionidlettl", 30*time.Minute)
	v.SetDefault("chat.evictionschedule", "@every 5m")

	v.SetDefault("identity.cachettl", time.Minute)
	v.SetDefault("identity.sweepschedule", "@every 1m")

	v.SetDefault("localstate.directory", ".swasth/state")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")
	v.BindEnv("server.allowedorigins", "ALLOWED_ORIGINS")

	v.BindEnv("database.url", "DATABASE_URL")

	v.BindEnv("persistence.backend", "PERSISTENCE_BACKEND")
	v.BindEnv("firestore.projectid", "FIRESTORE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")

	v.BindEnv("gemini.apikey", "GEMINI_API_KEY", "GOOGLE_API_KEY")
	v.BindEnv("gemini.project", "GEMINI_PROJECT")
	v.BindEnv("gemini.location", "GEMINI_LOCATION")
	v.BindEnv("gemini.chatmodel", "GEMINI_MODEL")
	v.BindEnv("gemini.imagemodel", "GEMINI_IMAGE_MODEL")

	v.BindEnv("azure.openai.endpoint", "AZURE_OPENAI_ENDPOINT")
	v.BindEnv("azure.openai.apikey", "AZURE_OPENAI_API_KEY")
	v.BindEnv("azure.openai.deployment", "AZURE_OPENAI_DEPLOYMENT")

	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.container", "AZURE_STORAGE_CONTAINER")

	v.BindEnv("ai.provider", "AI_PROVIDER")

	v.BindEnv("chat.historylimit", "CHAT_HISTORY_LIMIT")
	v.BindEnv("chat.fallbackreply", "CHAT_FALLBACK_REPLY")
	v.BindEnv("chat.debounceinterval", "CHAT_DEBOUNCE_INTERVAL")
	v.BindEnv("chat.sessionidlettl", "CHAT_SESSION_IDLE_TTL")
	v.BindEnv("chat.evictionschedule", "CHAT_EVICTION_SCHEDULE")

	v.BindEnv("identity.cachettl", "IDENTITY_CACHE_TTL")
	v.BindEnv("identity.sweepschedule", "IDENTITY_SWEEP_SCHEDULE")

	v.BindEnv("localstate.directory", "LOCAL_STATE_DIR")

	v.BindEnv("security.contentkey", "CONTENT_ENCRYPTION_KEY")

	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Persistence.Backend {
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres backend")
		}
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore.projectid is required for the firestore backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown persistence.backend %q", c.Persistence.Backend)
	}

	switch c.AI.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" && c.Gemini.Project == "" {
			return fmt.Errorf("gemini.apikey or gemini.project is required for the gemini provider")
		}
	case ProviderAzure:
		if c.Azure.OpenAI.Endpoint == "" || c.Azure.OpenAI.APIKey == "" || c.Azure.OpenAI.Deployment == "" {
			return fmt.Errorf("azure.openai endpoint, apikey and deployment are required for the azure provider")
		}
	case ProviderEcho:
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}

	if (c.Azure.Storage.AccountName == "") != (c.Azure.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage requires both account name and key")
	}

	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.historylimit must be positive")
	}

	if c.Identity.CacheTTL <= 0 {
		return fmt.Errorf("identity.cachettl must be positive")
	}

	return nil
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
