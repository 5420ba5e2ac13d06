package config

import (
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("WS_HEARTBEAT_INTERVAL_SECONDS", "")
	t.Setenv("WS_HEARTBEAT_TIMEOUT_SECONDS", "")
	t.Setenv("MEMORY_EXTRACT_EVERY", "")
	t.Setenv("MEMORY_RETRIEVE_TOP", "")
	t.Setenv("HISTORY_LIMIT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("ARK_API_KEY", "")
	t.Setenv("ARK_ACCESS_KEY", "")
	t.Setenv("ARK_SECRET_KEY", "")
	t.Setenv("MODEL", "")
	t.Setenv("ARK_TEMPERATURE", "")
	t.Setenv("ARK_TOP_P", "")
	t.Setenv("ARK_MAX_TOKENS", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected token ttl: %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.WS.HeartbeatInterval != 30*time.Second || cfg.WS.HeartbeatTimeout != 60*time.Second {
		t.Fatalf("unexpected heartbeat config: %+v", cfg.WS)
	}
	if cfg.Intelligence.MemoryExtractEvery != 5 || cfg.Intelligence.MemoryRetrieveTop != 5 {
		t.Fatalf("unexpected intelligence config: %+v", cfg.Intelligence)
	}
	if cfg.Intelligence.HistoryLimit != 0 {
		t.Fatalf("history must be unlimited by default, got %d", cfg.Intelligence.HistoryLimit)
	}
	if cfg.AI.Enabled() {
		t.Fatal("AI must be disabled without credentials")
	}
	if cfg.Storage.DataDir != "" {
		t.Fatalf("unexpected data dir: %s", cfg.Storage.DataDir)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")
	t.Setenv("WS_HEARTBEAT_INTERVAL_SECONDS", "10")
	t.Setenv("WS_HEARTBEAT_TIMEOUT_SECONDS", "25")
	t.Setenv("MEMORY_EXTRACT_EVERY", "3")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("DATA_DIR", "/tmp/fireside-data")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Auth.AccessTokenTTL != time.Hour {
		t.Fatalf("unexpected token ttl: %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.WS.HeartbeatInterval != 10*time.Second || cfg.WS.HeartbeatTimeout != 25*time.Second {
		t.Fatalf("unexpected heartbeat config: %+v", cfg.WS)
	}
	if cfg.Intelligence.MemoryExtractEvery != 3 {
		t.Fatalf("unexpected extract cadence: %d", cfg.Intelligence.MemoryExtractEvery)
	}
	if cfg.Intelligence.HistoryLimit != 50 {
		t.Fatalf("unexpected history limit: %d", cfg.Intelligence.HistoryLimit)
	}
	if cfg.Storage.DataDir != "/tmp/fireside-data" {
		t.Fatalf("unexpected data dir: %s", cfg.Storage.DataDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("WS_HEARTBEAT_TIMEOUT_SECONDS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero heartbeat timeout")
	}

	setBaseEnv(t)
	t.Setenv("MEMORY_EXTRACT_EVERY", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric cadence")
	}

	setBaseEnv(t)
	t.Setenv("HISTORY_LIMIT", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative history limit")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	if (AIConfig{}).Enabled() {
		t.Fatal("empty config must be disabled")
	}
	if !(AIConfig{Model: "m", APIKey: "k"}).Enabled() {
		t.Fatal("api key + model must enable")
	}
	if !(AIConfig{Model: "m", AccessKey: "a", SecretKey: "s"}).Enabled() {
		t.Fatal("ak/sk pair + model must enable")
	}
	if (AIConfig{Model: "m", AccessKey: "a"}).Enabled() {
		t.Fatal("incomplete ak/sk pair must stay disabled")
	}
}
