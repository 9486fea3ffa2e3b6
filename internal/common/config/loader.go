package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top and applies env overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return decode(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)
	return v
}

// AutomaticEnv only applies to keys viper already knows about, so secrets that
// may be absent from the YAML are bound explicitly.
func bindEnvKeys(v *viper.Viper) {
	_ = v.BindEnv("intent.encoder.api_key", "OPENAI_API_KEY", "INTENT_ENCODER_API_KEY")
	_ = v.BindEnv("database.postgres.user", "DB_USER", "DATABASE_POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "DB_PASSWORD", "DATABASE_POSTGRES_PASSWORD")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD", "DATABASE_REDIS_PASSWORD")
	_ = v.BindEnv("app.environment", "APP_ENVIRONMENT")
}

func decode(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking from the working directory up to the module root.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "botforge"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/botforge.db"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Intent.Strategy == "" {
		cfg.Intent.Strategy = "keyword"
	}
	if cfg.Intent.ModelPath == "" {
		cfg.Intent.ModelPath = "models/intent_model.json"
	}
	if cfg.Intent.EmbeddingsPath == "" {
		cfg.Intent.EmbeddingsPath = "models/intent_embeddings.json"
	}
	if cfg.Intent.LabelsPath == "" {
		cfg.Intent.LabelsPath = "models/intent_labels.json"
	}
	if cfg.Intent.ExamplesPath == "" {
		cfg.Intent.ExamplesPath = "configs/intent_examples.yaml"
	}
	if cfg.Intent.Encoder.Provider == "" {
		cfg.Intent.Encoder.Provider = "hashing"
	}
	if cfg.Intent.Encoder.Dimensions == 0 {
		cfg.Intent.Encoder.Dimensions = 384
	}
	if cfg.Intent.Encoder.Timeout == 0 {
		cfg.Intent.Encoder.Timeout = 10000
	}

	if cfg.Speech.Workers == 0 {
		cfg.Speech.Workers = 2
	}
	if cfg.Speech.SampleRate == 0 {
		cfg.Speech.SampleRate = 16000
	}
	if cfg.Speech.ChunkBytes == 0 {
		cfg.Speech.ChunkBytes = 4000
	}
	if cfg.Speech.MinDuration == 0 {
		cfg.Speech.MinDuration = 0.5
	}
	if cfg.Speech.FFmpegPath == "" {
		cfg.Speech.FFmpegPath = "ffmpeg"
	}
	if cfg.Speech.DecodeTimeout == 0 {
		cfg.Speech.DecodeTimeout = 30000
	}

	if cfg.Pipeline.RequestTimeout == 0 {
		cfg.Pipeline.RequestTimeout = 30000
	}

	if cfg.Conversation.Sink == "" {
		cfg.Conversation.Sink = "none"
	}
	if cfg.Conversation.Index == "" {
		cfg.Conversation.Index = "chat-messages"
	}
	if cfg.Conversation.QueueSize == 0 {
		cfg.Conversation.QueueSize = 256
	}
	if cfg.Conversation.HistoryLimit == 0 {
		cfg.Conversation.HistoryLimit = 50
	}

	if cfg.ProfileCache.TTL == 0 {
		cfg.ProfileCache.TTL = 300
	}
	if cfg.ProfileCache.Prefix == "" {
		cfg.ProfileCache.Prefix = "botforge:profile:"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.SampleRatio == 0 {
		cfg.Observability.SampleRatio = 1.0
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres, sqlite or memory, got %q", cfg.Database.Driver)
	}

	switch cfg.Intent.Strategy {
	case "keyword", "trained", "embedding":
	default:
		return fmt.Errorf("intent.strategy must be keyword, trained or embedding, got %q", cfg.Intent.Strategy)
	}

	if cfg.Intent.Strategy == "embedding" {
		switch cfg.Intent.Encoder.Provider {
		case "hashing":
		case "openai":
			if cfg.Intent.Encoder.APIKey == "" {
				return fmt.Errorf("intent.encoder.api_key is required for the openai encoder")
			}
		default:
			return fmt.Errorf("intent.encoder.provider must be hashing or openai, got %q", cfg.Intent.Encoder.Provider)
		}
	}

	if cfg.Speech.Enabled && cfg.Speech.ModelPath == "" {
		return fmt.Errorf("speech.model_path is required when speech is enabled")
	}

	switch cfg.Conversation.Sink {
	case "none", "memory":
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required for the elasticsearch sink")
		}
	default:
		return fmt.Errorf("conversation.sink must be elasticsearch, memory or none, got %q", cfg.Conversation.Sink)
	}

	if cfg.ProfileCache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when profile_cache is enabled")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	return nil
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
