package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Agent    AgentConfig    `yaml:"agent"`
	Database DatabaseConfig `yaml:"database"`
}

// MustLoad reads the YAML config at configPath, expanding ${VAR} references
// from the environment and then applying env-tag overrides. A .env file next
// to the process, when present, is loaded first. Panics on any failure:
// there is no sane way to run without configuration.
func MustLoad(configPath string) *Config {
	if configPath == "" {
		panic("config path is empty")
	}

	// .env is optional; a missing file is fine
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		panic("failed to read data from config file: " + configPath)
	}

	// Enrich with env variables
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic("cannot parse config: " + err.Error())
	}

	// Environment variables win over file values and fill in defaults
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read config from environment: " + err.Error())
	}

	return &cfg
}

func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
