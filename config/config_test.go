package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate runs the test in an empty temp dir with CONFIG_PATH cleared so a
// developer's local config.yaml never leaks into tests.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverDynamo {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverDynamo)
	}
	if cfg.Chat.EditWindow != 24*time.Hour {
		t.Errorf("Chat.EditWindow = %v, want 24h", cfg.Chat.EditWindow)
	}
	if cfg.Chat.DeleteForEveryoneWindow != time.Hour {
		t.Errorf("Chat.DeleteForEveryoneWindow = %v, want 1h", cfg.Chat.DeleteForEveryoneWindow)
	}
	if cfg.Chat.OneViewTTL != 24*time.Hour {
		t.Errorf("Chat.OneViewTTL = %v, want 24h", cfg.Chat.OneViewTTL)
	}
	if cfg.Chat.EditHistoryCap != 10 {
		t.Errorf("Chat.EditHistoryCap = %d, want 10", cfg.Chat.EditHistoryCap)
	}
	if cfg.Chat.DefaultPageSize != 50 || cfg.Chat.MaxPageSize != 100 {
		t.Errorf("page sizes = %d/%d, want 50/100", cfg.Chat.DefaultPageSize, cfg.Chat.MaxPageSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tables.Messages != "Messages" {
		t.Errorf("Tables.Messages = %q, want Messages", cfg.Tables.Messages)
	}
	if cfg.Chat.DeliveryDelay != 2*time.Second {
		t.Errorf("Chat.DeliveryDelay = %v, want 2s", cfg.Chat.DeliveryDelay)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CHAT_EDIT_WINDOW", "2h")
	t.Setenv("CHAT_EDIT_HISTORY", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MESSAGES_TABLE", "MessagesStaging")
	t.Setenv("STORE_SEED_USERS", "alice,bob")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Store.Driver = %q, want memory", cfg.Store.Driver)
	}
	if cfg.Chat.EditWindow != 2*time.Hour {
		t.Errorf("Chat.EditWindow = %v, want 2h", cfg.Chat.EditWindow)
	}
	if cfg.Chat.EditHistoryCap != 3 {
		t.Errorf("Chat.EditHistoryCap = %d, want 3", cfg.Chat.EditHistoryCap)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Server.CORSOrigins = %v, want two trimmed origins", cfg.Server.CORSOrigins)
	}
	if cfg.Tables.Messages != "MessagesStaging" {
		t.Errorf("Tables.Messages = %q, want MessagesStaging", cfg.Tables.Messages)
	}
	if len(cfg.Store.SeedUsers) != 2 || cfg.Store.SeedUsers[0] != "alice" {
		t.Errorf("Store.SeedUsers = %v, want [alice bob]", cfg.Store.SeedUsers)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := "server:\n  port: 7070\nchat:\n  max_page_size: 200\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "7171")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	// env wins over file
	if cfg.Server.Port != 7171 {
		t.Errorf("Server.Port = %d, want 7171", cfg.Server.Port)
	}
	if cfg.Chat.MaxPageSize != 200 {
		t.Errorf("Chat.MaxPageSize = %d, want 200", cfg.Chat.MaxPageSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "store.driver"},
		{"dynamo without region", func(c *Config) { c.AWS.Region = "" }, "aws.region"},
		{"memory without region", func(c *Config) { c.Store.Driver = DriverMemory; c.AWS.Region = "" }, ""},
		{"zero edit window", func(c *Config) { c.Chat.EditWindow = 0 }, "chat windows"},
		{"history cap", func(c *Config) { c.Chat.EditHistoryCap = 0 }, "edit_history_cap"},
		{"page sizes", func(c *Config) { c.Chat.MaxPageSize = 10 }, "page sizes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
