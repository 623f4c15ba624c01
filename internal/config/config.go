package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the explicit configuration value the pipeline entry points
// receive. It is loaded and validated once at startup; nothing downstream
// reads the environment.
type Config struct {
	Agent struct {
		Mentions []string `koanf:"mentions"` // lower-cased mention substrings
		BotID    string   `koanf:"bot_id"`   // account id the bot posts as
	} `koanf:"agent"`

	Figma struct {
		BaseURL     string `koanf:"base_url"`
		ReaderToken string `koanf:"reader_token"` // read credential (thread/node/image fetch)
		BotToken    string `koanf:"bot_token"`    // distinct posting credential
	} `koanf:"figma"`

	General struct {
		DefaultAI string `koanf:"default_ai"`
	} `koanf:"general"`

	AI map[string]map[string]interface{} `koanf:"ai"`

	Database struct {
		URL string `koanf:"url"` // optional; audit falls back to the log sink
	} `koanf:"database"`

	Server struct {
		Port int `koanf:"port"`
	} `koanf:"server"`

	Retry struct {
		MaxAttempts int `koanf:"max_attempts"`
		DelayMillis int `koanf:"delay_millis"`
	} `koanf:"retry"`
}

// LoadConfig loads configuration from defaults, an optional TOML file, and
// CANVASREVIEW_-prefixed environment variables, in that order.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	k.Load(confmap.Provider(map[string]interface{}{
		"agent.mentions":     []string{"@canvasreview"},
		"general.default_ai": "gemini",
		"server.port":        8898,
		"retry.max_attempts": 3,
		"retry.delay_millis": 1000,
	}, "."), nil)

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./canvasreview.toml", "$HOME/.canvasreview.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	k.Load(env.Provider("CANVASREVIEW_", ".", func(s string) string {
		// CANVASREVIEW_FIGMA_BOT_TOKEN -> figma.bot_token. Only the first
		// underscore separates the section; the rest belongs to the key.
		s = strings.ToLower(strings.TrimPrefix(s, "CANVASREVIEW_"))
		section, key, found := strings.Cut(s, "_")
		if !found {
			return s
		}
		if section == "ai" {
			// The ai table nests one level deeper: backend, then option.
			if backend, opt, ok := strings.Cut(key, "_"); ok {
				return "ai." + backend + "." + opt
			}
		}
		return section + "." + key
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig writes a sample configuration file.
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# CanvasReview Configuration

[agent]
mentions = ["@canvasreview"]
bot_id = "bot-account-id"

[figma]
reader_token = "figd_reader_token"
bot_token = "figd_bot_token"

[general]
default_ai = "gemini"

[ai.gemini]
api_key = "your-gemini-api-key"
model = "gemini-2.5-flash"
temperature = 0.2

[database]
url = ""

[server]
port = 8898
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks the batch preconditions once at startup. A validation
// failure means no comment processing happens at all.
func Validate(config *Config) error {
	if len(config.Agent.Mentions) == 0 {
		return fmt.Errorf("at least one agent mention pattern is required")
	}
	if config.Agent.BotID == "" {
		return fmt.Errorf("agent bot_id is required")
	}
	if config.Figma.ReaderToken == "" {
		return fmt.Errorf("figma reader_token is required")
	}
	if config.Figma.BotToken == "" {
		return fmt.Errorf("figma bot_token is required")
	}
	if config.General.DefaultAI == "" {
		return fmt.Errorf("default AI backend is required")
	}

	aiConfig, ok := config.AI[config.General.DefaultAI]
	if !ok {
		return fmt.Errorf("configuration for AI backend %s not found", config.General.DefaultAI)
	}

	switch config.General.DefaultAI {
	case "gemini", "openai", "claude":
		if _, ok := aiConfig["api_key"]; !ok {
			return fmt.Errorf("%s api_key is required", config.General.DefaultAI)
		}
	}

	return nil
}
