package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	publicURLVar = "PUBLIC_URL"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetPublicURL() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Broker")
}

// GetPublicURL returns the externally reachable base URL of the broker
// (e.g., "https://auth.example.com"). It is used to build the provider
// redirect_uri for the hosted callback endpoint.
func (EnvVars) GetPublicURL() string {
	return GetEnv(publicURLVar, "http://localhost:8080")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
