package config

import (
	"time"
)

type AppConfig struct {
	Env            string        `yaml:"env" env:"APP_ENV" env-default:"local"`
	Port           int           `yaml:"port" env:"APP_PORT" env-default:"8080"`
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"APP_DEFAULT_TIMEOUT" env-default:"10s"`
}

// AgentConfig scopes the filesystem and key-value namespaces to one agent.
type AgentConfig struct {
	ID        string `yaml:"id" env:"AGENT_ID" env-default:"default"`
	MountPath string `yaml:"mount_path" env:"AGENT_MOUNT_PATH" env-default:"/agent"`
}
