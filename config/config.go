// Package config loads runtime settings from defaults, an optional YAML file
// and the environment, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// Store drivers
const (
	DriverDynamo = "dynamo"
	DriverMemory = "memory"
)

type Config struct {
	Server ServerConfig `koanf:"server"`
	AWS    AWSConfig    `koanf:"aws"`
	Media  MediaConfig  `koanf:"media"`
	Store  StoreConfig  `koanf:"store"`
	Tables TablesConfig `koanf:"tables"`
	Chat   ChatConfig   `koanf:"chat"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	CORSOrigins    []string      `koanf:"cors_origins"`
}

type AWSConfig struct {
	Region   string `koanf:"region"`
	// Endpoint points the DynamoDB client at a local emulator when set.
	Endpoint string `koanf:"endpoint"`
}

type MediaConfig struct {
	Bucket       string        `koanf:"bucket"`
	UploadPrefix string        `koanf:"upload_prefix"`
	URLTTL       time.Duration `koanf:"url_ttl"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"` // dynamo or memory

	// SeedUsers are saved as active profiles when the memory driver starts.
	SeedUsers []string `koanf:"seed_users"`
}

type TablesConfig struct {
	Interactions string `koanf:"interactions"`
	Matches      string `koanf:"matches"`
	Chats        string `koanf:"chats"`
	Messages     string `koanf:"messages"`
	Users        string `koanf:"users"`
	Blocks       string `koanf:"blocks"`
}

// ChatConfig holds the messaging policy windows and paging limits.
type ChatConfig struct {
	EditWindow              time.Duration `koanf:"edit_window"`
	DeleteForEveryoneWindow time.Duration `koanf:"delete_for_everyone_window"`
	OneViewTTL              time.Duration `koanf:"one_view_ttl"`
	EditHistoryCap          int           `koanf:"edit_history_cap"`
	DeliveryDelay           time.Duration `koanf:"delivery_delay"`
	DefaultPageSize         int           `koanf:"default_page_size"`
	MaxPageSize             int           `koanf:"max_page_size"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			RequestTimeout: 5 * time.Second,
			CORSOrigins:    []string{"*"},
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Media: MediaConfig{
			UploadPrefix: "chat-media/",
			URLTTL:       5 * time.Minute,
		},
		Store: StoreConfig{
			Driver: DriverDynamo,
		},
		Tables: TablesConfig{
			Interactions: "Interactions",
			Matches:      "Matches",
			Chats:        "Chats",
			Messages:     "Messages",
			Users:        "Users",
			Blocks:       "Blocks",
		},
		Chat: ChatConfig{
			EditWindow:              24 * time.Hour,
			DeleteForEveryoneWindow: time.Hour,
			OneViewTTL:              24 * time.Hour,
			EditHistoryCap:          10,
			DeliveryDelay:           2 * time.Second,
			DefaultPageSize:         50,
			MaxPageSize:             100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: struct defaults, then the config file if
// one exists, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// list settings arrive from the environment as comma-separated strings
	for _, key := range []string{"server.cors_origins", "store.seed_users"} {
		raw := k.String(key)
		if raw == "" || !strings.Contains(raw, ",") {
			continue
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if err := k.Set(key, parts); err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names onto koanf paths.
// Unmapped variables are skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"port":                "server.port",
		"request_timeout":     "server.request_timeout",
		"cors_origins":        "server.cors_origins",
		"aws_region":          "aws.region",
		"dynamodb_endpoint":   "aws.endpoint",
		"s3_bucket_name":      "media.bucket",
		"media_upload_prefix": "media.upload_prefix",
		"media_url_ttl":       "media.url_ttl",
		"store_driver":        "store.driver",
		"store_seed_users":    "store.seed_users",
		"interactions_table":  "tables.interactions",
		"matches_table":       "tables.matches",
		"chats_table":         "tables.chats",
		"messages_table":      "tables.messages",
		"users_table":         "tables.users",
		"blocks_table":        "tables.blocks",
		"chat_edit_window":    "chat.edit_window",
		"chat_delete_window":  "chat.delete_for_everyone_window",
		"chat_one_view_ttl":   "chat.one_view_ttl",
		"chat_edit_history":   "chat.edit_history_cap",
		"chat_delivery_delay": "chat.delivery_delay",
		"chat_page_size":      "chat.default_page_size",
		"chat_max_page_size":  "chat.max_page_size",
		"log_level":           "log.level",
		"log_format":          "log.format",
		"log_caller":          "log.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Validate checks cross-field constraints koanf cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Store.Driver {
	case DriverDynamo:
		if c.AWS.Region == "" {
			errs = append(errs, errors.New("aws.region is required for the dynamo store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q or %q, got %q", DriverDynamo, DriverMemory, c.Store.Driver))
	}
	if c.Chat.EditWindow <= 0 || c.Chat.DeleteForEveryoneWindow <= 0 || c.Chat.OneViewTTL <= 0 {
		errs = append(errs, errors.New("chat windows must be positive"))
	}
	if c.Chat.EditHistoryCap < 1 {
		errs = append(errs, fmt.Errorf("chat.edit_history_cap must be at least 1, got %d", c.Chat.EditHistoryCap))
	}
	if c.Chat.DefaultPageSize < 1 || c.Chat.MaxPageSize < c.Chat.DefaultPageSize {
		errs = append(errs, fmt.Errorf("chat page sizes invalid: default %d, max %d", c.Chat.DefaultPageSize, c.Chat.MaxPageSize))
	}
	if c.Chat.DeliveryDelay < 0 {
		errs = append(errs, errors.New("chat.delivery_delay must not be negative"))
	}

	return errors.Join(errs...)
}
