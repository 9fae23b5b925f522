package config

type Config interface {
	EnvConfig
	BrokerConfig
	ProviderConfig
}

type mainConfig struct {
	EnvVars
	Broker
	Provider
}

func New() Config {
	return mainConfig{}
}
