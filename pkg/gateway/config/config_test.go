package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/frontdeskhq/frontdesk/pkg/core/providers/openai"
)

// Every variable the package reads, without the FRONTDESK_ prefix. Tests
// clear both the prefixed and the bare form of each.
var envSuffixes = []string{
	"ADDR",
	"OPENAI_API_KEY",
	"OPENAI_BASE_URL",
	"REALTIME_URL",
	"REALTIME_MODEL",
	"CHAT_MODEL",
	"MAKE_WEBHOOK_URL",
	"INSTRUCTIONS",
	"VOICE",
	"TRANSCRIPTION_MODEL",
	"TRANSCRIPTION_LANGUAGE",
	"UPSTREAM_DIAL_TIMEOUT",
	"UPSTREAM_PING_INTERVAL",
	"CLIENT_PING_INTERVAL",
	"CLIENT_WRITE_TIMEOUT",
	"MAX_AUDIO_FRAME_BYTES",
	"EXTRACT_QUEUE_SIZE",
	"CHAT_MAX_CONVERSATIONS",
	"CHAT_MAX_BODY_BYTES",
	"STATIC_DIR",
	"CORS_ALLOWED_ORIGINS",
	"READ_HEADER_TIMEOUT",
	"SHUTDOWN_GRACE_PERIOD",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, suffix := range envSuffixes {
		unsetEnv(t, envPrefix+"_"+suffix)
		unsetEnv(t, suffix)
	}
}

// unsetEnv removes key for the duration of the test. t.Setenv registers
// the restore; the empty value it writes would still be visible to
// os.LookupEnv, so the key is unset explicitly afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Fatalf("Addr = %q, want :8000", cfg.Addr)
	}
	if cfg.OpenAIAPIKey != "sk-test" {
		t.Fatalf("OpenAIAPIKey = %q, want sk-test", cfg.OpenAIAPIKey)
	}
	if cfg.OpenAIBaseURL != openai.DefaultBaseURL {
		t.Fatalf("OpenAIBaseURL = %q, want %q", cfg.OpenAIBaseURL, openai.DefaultBaseURL)
	}
	if cfg.RealtimeURL != openai.DefaultRealtimeURL {
		t.Fatalf("RealtimeURL = %q, want %q", cfg.RealtimeURL, openai.DefaultRealtimeURL)
	}
	if cfg.RealtimeModel != openai.DefaultRealtimeModel {
		t.Fatalf("RealtimeModel = %q, want %q", cfg.RealtimeModel, openai.DefaultRealtimeModel)
	}
	if cfg.ChatModel != "gpt-4o-mini" {
		t.Fatalf("ChatModel = %q, want gpt-4o-mini", cfg.ChatModel)
	}
	if cfg.WebhookURL != "" {
		t.Fatalf("WebhookURL = %q, want empty", cfg.WebhookURL)
	}
	if !strings.HasPrefix(cfg.Instructions, "You are a friendly AI receptionist.") {
		t.Fatalf("Instructions = %q, want receptionist persona", cfg.Instructions)
	}
	if !strings.Contains(cfg.Instructions, "book_appointment") {
		t.Fatalf("Instructions = %q, want mention of the booking tool", cfg.Instructions)
	}
	if cfg.Voice != "alloy" {
		t.Fatalf("Voice = %q, want alloy", cfg.Voice)
	}
	if cfg.TranscriptionModel != "whisper-1" {
		t.Fatalf("TranscriptionModel = %q, want whisper-1", cfg.TranscriptionModel)
	}
	if cfg.TranscriptionLanguage != "en" {
		t.Fatalf("TranscriptionLanguage = %q, want en", cfg.TranscriptionLanguage)
	}
	if cfg.UpstreamDialTimeout != 15*time.Second {
		t.Fatalf("UpstreamDialTimeout = %v, want 15s", cfg.UpstreamDialTimeout)
	}
	if cfg.UpstreamPingInterval != 20*time.Second {
		t.Fatalf("UpstreamPingInterval = %v, want 20s", cfg.UpstreamPingInterval)
	}
	if cfg.ClientPingInterval != 20*time.Second {
		t.Fatalf("ClientPingInterval = %v, want 20s", cfg.ClientPingInterval)
	}
	if cfg.ClientWriteTimeout != 5*time.Second {
		t.Fatalf("ClientWriteTimeout = %v, want 5s", cfg.ClientWriteTimeout)
	}
	if cfg.MaxAudioFrameBytes != 64<<10 {
		t.Fatalf("MaxAudioFrameBytes = %d, want %d", cfg.MaxAudioFrameBytes, int64(64<<10))
	}
	if cfg.ExtractQueueSize != 8 {
		t.Fatalf("ExtractQueueSize = %d, want 8", cfg.ExtractQueueSize)
	}
	if cfg.ChatMaxConversations != 256 {
		t.Fatalf("ChatMaxConversations = %d, want 256", cfg.ChatMaxConversations)
	}
	if cfg.ChatMaxBodyBytes != 64<<10 {
		t.Fatalf("ChatMaxBodyBytes = %d, want %d", cfg.ChatMaxBodyBytes, int64(64<<10))
	}
	if cfg.StaticDir != "." {
		t.Fatalf("StaticDir = %q, want .", cfg.StaticDir)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("CORSAllowedOrigins = %v, want [*]", cfg.CORSAllowedOrigins)
	}
	if cfg.ReadHeaderTimeout != 10*time.Second {
		t.Fatalf("ReadHeaderTimeout = %v, want 10s", cfg.ReadHeaderTimeout)
	}
	if cfg.ShutdownGracePeriod != 15*time.Second {
		t.Fatalf("ShutdownGracePeriod = %v, want 15s", cfg.ShutdownGracePeriod)
	}
}

func TestLoadFromEnv_MissingAPIKeyFails(t *testing.T) {
	clearEnv(t)

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() succeeded without an API key")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("error = %v, want mention of OPENAI_API_KEY", err)
	}
}

func TestLoadFromEnv_PrefixedKeysWinOverBare(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-bare")
	t.Setenv("FRONTDESK_OPENAI_API_KEY", "sk-prefixed")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.OpenAIAPIKey != "sk-prefixed" {
		t.Fatalf("OpenAIAPIKey = %q, want sk-prefixed", cfg.OpenAIAPIKey)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRONTDESK_OPENAI_API_KEY", "sk-test")
	t.Setenv("FRONTDESK_ADDR", ":9100")
	t.Setenv("FRONTDESK_CLIENT_PING_INTERVAL", "45s")
	t.Setenv("FRONTDESK_MAX_AUDIO_FRAME_BYTES", "1024")
	t.Setenv("FRONTDESK_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MAKE_WEBHOOK_URL", "https://hook.example/booking")
	t.Setenv("FRONTDESK_INSTRUCTIONS", "You are a terse robot.")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Fatalf("Addr = %q, want :9100", cfg.Addr)
	}
	if cfg.ClientPingInterval != 45*time.Second {
		t.Fatalf("ClientPingInterval = %v, want 45s", cfg.ClientPingInterval)
	}
	if cfg.MaxAudioFrameBytes != 1024 {
		t.Fatalf("MaxAudioFrameBytes = %d, want 1024", cfg.MaxAudioFrameBytes)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], want[i])
		}
	}
	if cfg.WebhookURL != "https://hook.example/booking" {
		t.Fatalf("WebhookURL = %q, want the configured hook", cfg.WebhookURL)
	}
	if cfg.Instructions != "You are a terse robot." {
		t.Fatalf("Instructions = %q, want the override", cfg.Instructions)
	}
}

func TestLoadFromEnv_RejectsNegativeDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FRONTDESK_SHUTDOWN_GRACE_PERIOD", "-1s")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() accepted a negative grace period")
	}
	if !strings.Contains(err.Error(), "FRONTDESK_SHUTDOWN_GRACE_PERIOD") {
		t.Fatalf("error = %v, want mention of FRONTDESK_SHUTDOWN_GRACE_PERIOD", err)
	}
}

func TestLoadFromEnv_RejectsMalformedDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FRONTDESK_CLIENT_WRITE_TIMEOUT", "soon")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() accepted a malformed duration")
	}
	if !strings.Contains(err.Error(), "FRONTDESK_CLIENT_WRITE_TIMEOUT") {
		t.Fatalf("error = %v, want mention of FRONTDESK_CLIENT_WRITE_TIMEOUT", err)
	}
}

func TestValidate_RejectsZeroQueueSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FRONTDESK_EXTRACT_QUEUE_SIZE", "-1")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() accepted a negative queue size")
	}
	if !strings.Contains(err.Error(), "FRONTDESK_EXTRACT_QUEUE_SIZE") {
		t.Fatalf("error = %v, want mention of FRONTDESK_EXTRACT_QUEUE_SIZE", err)
	}
}
