package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath = "config.toml"
	DefaultHTTPAddr   = ":8000"
	DefaultDatabase   = "sobrus_customer_service"
	DefaultCollection = "chat_messages"
)

type Config struct {
	Log    LogConfig    `toml:"log"`
	Server ServerConfig `toml:"server"`
	Mongo  MongoConfig  `toml:"mongo"`
	Twilio TwilioConfig `toml:"twilio"`
	Agent  AgentConfig  `toml:"agent"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// MongoConfig locates the conversation store. All three fields must be
// present for persistence to be considered configured; otherwise reads
// degrade to 503 and writes become no-ops.
type MongoConfig struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Configured reports whether the conversation store can be reached at all.
func (c MongoConfig) Configured() bool {
	return strings.TrimSpace(c.URI) != "" &&
		strings.TrimSpace(c.Database) != "" &&
		strings.TrimSpace(c.Collection) != ""
}

// TwilioConfig holds channel-provider credentials. When incomplete, the
// delivery chain skips direct API sends and falls back to inline TwiML.
type TwilioConfig struct {
	AccountSID  string `toml:"account_sid"`
	AuthToken   string `toml:"auth_token"`
	PhoneNumber string `toml:"phone_number"`
}

// Configured reports whether direct API delivery may be attempted.
func (c TwilioConfig) Configured() bool {
	return strings.TrimSpace(c.AccountSID) != "" &&
		strings.TrimSpace(c.AuthToken) != "" &&
		strings.TrimSpace(c.PhoneNumber) != ""
}

type AgentConfig struct {
	BaseURL string `toml:"base_url" validate:"omitempty,url"`
}

// Load reads the toml config at path (missing file is fine, defaults
// apply), then applies environment overrides for the recognized options.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		// The URI deliberately has no default: without an explicit
		// connection target the store stays unconfigured, writes are
		// no-ops and reads answer 503.
		Mongo: MongoConfig{
			Database:   DefaultDatabase,
			Collection: DefaultCollection,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrideEnv(&cfg.Mongo.URI, "MONGODB_URI")
	overrideEnv(&cfg.Mongo.Database, "MONGODB_DB")
	overrideEnv(&cfg.Mongo.Collection, "MONGODB_COLLECTION")
	overrideEnv(&cfg.Twilio.AccountSID, "TWILIO_ACCOUNT_SID")
	overrideEnv(&cfg.Twilio.AuthToken, "TWILIO_AUTH_TOKEN")
	overrideEnv(&cfg.Twilio.PhoneNumber, "TWILIO_PHONE_NUMBER")
	overrideEnv(&cfg.Agent.BaseURL, "AGENT_URL")
	overrideEnv(&cfg.Log.Level, "LOG_LEVEL")

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.Contains(port, ":") {
			cfg.Server.Addr = port
		} else {
			cfg.Server.Addr = ":" + port
		}
	}
}

func overrideEnv(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}
