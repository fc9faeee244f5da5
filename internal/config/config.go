package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
	ServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
}

// ClientConfig covers the session SDK and CLI.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetTokenStoreBackend() string // "file" or "sqlite"
}

// ServerConfig covers the dev auth server.
type ServerConfig interface {
	GetPort() string
	GetTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
