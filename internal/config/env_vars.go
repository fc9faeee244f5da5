package config

import (
	"fmt"
	"os"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	folderEnvVar  = "FOLDER"
	apiBaseURLVar = "API_BASE_URL"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go Auth Client")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, defaultDataFolder())
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAPIBaseURL returns the base URL of the remote authentication server
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:4001")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	return getDurationEnv("REQUEST_TIMEOUT", 15*time.Second)
}

func (EnvVars) GetTokenStoreBackend() string {
	return GetEnv("TOKEN_STORE", "file")
}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "4001")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "")
}

func (EnvVars) GetAccessTokenExpiry() time.Duration {
	return getDurationEnv("ACCESS_TOKEN_EXPIRY", 15*time.Minute)
}

func (EnvVars) GetRefreshTokenExpiry() time.Duration {
	return getDurationEnv("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func defaultDataFolder() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return home + "/.go-auth-client"
}
