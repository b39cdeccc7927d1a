// Package config loads the relay's runtime configuration from the
// environment. Every key is read as FRONTDESK_<NAME> first with an
// unprefixed <NAME> fallback, so deployments that export the classic
// OPENAI_API_KEY and MAKE_WEBHOOK_URL names keep working unchanged.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
)

const envPrefix = "FRONTDESK"

// defaultInstructions is the receptionist persona used when no override
// is configured.
const defaultInstructions = "You are a friendly AI receptionist. " +
	"Greet the user first and ask politely how you can help. " +
	"Help users book appointments. " +
	"Ask politely for any missing details (name, email, phone, service, date, time). " +
	"Once all details are collected, use the book_appointment tool to finalize the booking."

type Config struct {
	Addr string `envconfig:"ADDR"`

	// OpenAI credentials and endpoints.
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	RealtimeURL   string `envconfig:"REALTIME_URL"`
	RealtimeModel string `envconfig:"REALTIME_MODEL"`
	ChatModel     string `envconfig:"CHAT_MODEL"`

	// Booking webhook endpoint. Empty disables delivery; extracted
	// bookings are then logged and dropped.
	WebhookURL string `envconfig:"MAKE_WEBHOOK_URL"`

	// Receptionist persona and realtime session settings.
	Instructions          string `envconfig:"INSTRUCTIONS"`
	Voice                 string `envconfig:"VOICE"`
	TranscriptionModel    string `envconfig:"TRANSCRIPTION_MODEL"`
	TranscriptionLanguage string `envconfig:"TRANSCRIPTION_LANGUAGE"`

	// Voice relay tuning.
	UpstreamDialTimeout  time.Duration `envconfig:"UPSTREAM_DIAL_TIMEOUT"`
	UpstreamPingInterval time.Duration `envconfig:"UPSTREAM_PING_INTERVAL"`
	ClientPingInterval   time.Duration `envconfig:"CLIENT_PING_INTERVAL"`
	ClientWriteTimeout   time.Duration `envconfig:"CLIENT_WRITE_TIMEOUT"`
	MaxAudioFrameBytes   int64         `envconfig:"MAX_AUDIO_FRAME_BYTES"`
	ExtractQueueSize     int           `envconfig:"EXTRACT_QUEUE_SIZE"`

	// Text chat limits.
	ChatMaxConversations int   `envconfig:"CHAT_MAX_CONVERSATIONS"`
	ChatMaxBodyBytes     int64 `envconfig:"CHAT_MAX_BODY_BYTES"`

	// HTTP server.
	StaticDir           string        `envconfig:"STATIC_DIR"`
	CORSAllowedOrigins  []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	ReadHeaderTimeout   time.Duration `envconfig:"READ_HEADER_TIMEOUT"`
	ShutdownGracePeriod time.Duration `envconfig:"SHUTDOWN_GRACE_PERIOD"`
}

// LoadFromEnv reads the environment, applies defaults for everything left
// unset, and validates the result.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Addr = stringOr(c.Addr, ":8000")
	c.OpenAIAPIKey = strings.TrimSpace(c.OpenAIAPIKey)
	c.OpenAIBaseURL = stringOr(c.OpenAIBaseURL, openai.DefaultBaseURL)
	c.RealtimeURL = stringOr(c.RealtimeURL, openai.DefaultRealtimeURL)
	c.RealtimeModel = stringOr(c.RealtimeModel, openai.DefaultRealtimeModel)
	c.ChatModel = stringOr(c.ChatModel, "gpt-4o-mini")
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)

	c.Instructions = stringOr(c.Instructions, defaultInstructions)
	c.Voice = stringOr(c.Voice, "alloy")
	c.TranscriptionModel = stringOr(c.TranscriptionModel, "whisper-1")
	c.TranscriptionLanguage = stringOr(c.TranscriptionLanguage, "en")

	c.UpstreamDialTimeout = durationOr(c.UpstreamDialTimeout, 15*time.Second)
	c.UpstreamPingInterval = durationOr(c.UpstreamPingInterval, 20*time.Second)
	c.ClientPingInterval = durationOr(c.ClientPingInterval, 20*time.Second)
	c.ClientWriteTimeout = durationOr(c.ClientWriteTimeout, 5*time.Second)
	if c.MaxAudioFrameBytes == 0 {
		c.MaxAudioFrameBytes = 64 << 10
	}
	if c.ExtractQueueSize == 0 {
		c.ExtractQueueSize = 8
	}

	if c.ChatMaxConversations == 0 {
		c.ChatMaxConversations = 256
	}
	if c.ChatMaxBodyBytes == 0 {
		c.ChatMaxBodyBytes = 64 << 10
	}

	c.StaticDir = stringOr(c.StaticDir, ".")
	c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}
	c.ReadHeaderTimeout = durationOr(c.ReadHeaderTimeout, 10*time.Second)
	c.ShutdownGracePeriod = durationOr(c.ShutdownGracePeriod, 15*time.Second)
}

// Validate rejects configurations the server cannot run with. Defaults
// have already been applied by LoadFromEnv; errors here mean an explicit
// override was out of range.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if c.OpenAIBaseURL == "" {
		return fmt.Errorf("FRONTDESK_OPENAI_BASE_URL must not be empty")
	}
	if c.RealtimeURL == "" {
		return fmt.Errorf("FRONTDESK_REALTIME_URL must not be empty")
	}
	if c.RealtimeModel == "" {
		return fmt.Errorf("FRONTDESK_REALTIME_MODEL must not be empty")
	}
	if c.ChatModel == "" {
		return fmt.Errorf("FRONTDESK_CHAT_MODEL must not be empty")
	}
	if c.UpstreamDialTimeout <= 0 {
		return fmt.Errorf("FRONTDESK_UPSTREAM_DIAL_TIMEOUT must be > 0")
	}
	if c.UpstreamPingInterval <= 0 {
		return fmt.Errorf("FRONTDESK_UPSTREAM_PING_INTERVAL must be > 0")
	}
	if c.ClientPingInterval <= 0 {
		return fmt.Errorf("FRONTDESK_CLIENT_PING_INTERVAL must be > 0")
	}
	if c.ClientWriteTimeout <= 0 {
		return fmt.Errorf("FRONTDESK_CLIENT_WRITE_TIMEOUT must be > 0")
	}
	if c.MaxAudioFrameBytes <= 0 {
		return fmt.Errorf("FRONTDESK_MAX_AUDIO_FRAME_BYTES must be > 0")
	}
	if c.ExtractQueueSize <= 0 {
		return fmt.Errorf("FRONTDESK_EXTRACT_QUEUE_SIZE must be > 0")
	}
	if c.ChatMaxConversations <= 0 {
		return fmt.Errorf("FRONTDESK_CHAT_MAX_CONVERSATIONS must be > 0")
	}
	if c.ChatMaxBodyBytes <= 0 {
		return fmt.Errorf("FRONTDESK_CHAT_MAX_BODY_BYTES must be > 0")
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("FRONTDESK_READ_HEADER_TIMEOUT must be > 0")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("FRONTDESK_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	return nil
}

func stringOr(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func durationOr(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func trimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
