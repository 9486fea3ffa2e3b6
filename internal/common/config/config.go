package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Intent        IntentConfig            `mapstructure:"intent"`
	Speech        SpeechConfig            `mapstructure:"speech"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Conversation  ConversationConfig      `mapstructure:"conversation"`
	ProfileCache  ProfileCacheConfig      `mapstructure:"profile_cache"`
	Content       ContentConfig           `mapstructure:"content"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// DatabaseConfig selects the SQL driver backing the content store ("postgres" or "sqlite").
type DatabaseConfig struct {
	Driver        string              `mapstructure:"driver"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	SQLite        SQLiteConfig        `mapstructure:"sqlite"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IntentConfig picks one classification strategy: "keyword", "trained" or "embedding".
type IntentConfig struct {
	Strategy       string        `mapstructure:"strategy"`
	ModelPath      string        `mapstructure:"model_path"`
	EmbeddingsPath string        `mapstructure:"embeddings_path"`
	LabelsPath     string        `mapstructure:"labels_path"`
	ExamplesPath   string        `mapstructure:"examples_path"`
	Encoder        EncoderConfig `mapstructure:"encoder"`
}

// EncoderConfig selects the sentence encoder used by the embedding strategy ("hashing" or "openai").
type EncoderConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
}

type SpeechConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	ModelPath     string  `mapstructure:"model_path"`
	Workers       int     `mapstructure:"workers"`
	SampleRate    int     `mapstructure:"sample_rate"`
	ChunkBytes    int     `mapstructure:"chunk_bytes"`
	MinDuration   float64 `mapstructure:"min_duration"` // seconds
	FFmpegPath    string  `mapstructure:"ffmpeg_path"`
	DecodeTimeout int     `mapstructure:"decode_timeout"` // milliseconds
}

type PipelineConfig struct {
	DetectLanguage bool `mapstructure:"detect_language"`
	RequestTimeout int  `mapstructure:"request_timeout"` // milliseconds
}

// ConversationConfig selects the conversation log sink ("elasticsearch", "memory" or "none").
type ConversationConfig struct {
	Sink         string `mapstructure:"sink"`
	Index        string `mapstructure:"index"`
	QueueSize    int    `mapstructure:"queue_size"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

type ProfileCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     int    `mapstructure:"ttl"` // seconds
	Prefix  string `mapstructure:"prefix"`
}

// ContentConfig points at an optional content pack merged over the built-in defaults.
type ContentConfig struct {
	PackPath string `mapstructure:"pack_path"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	ServiceName    string  `mapstructure:"service_name"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
