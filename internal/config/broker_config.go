package config

import "time"

type BrokerConfig interface {
	GetSessionTTL() time.Duration
	GetSweepInterval() time.Duration
	GetStartRatePerMinute() int
	GetPollRatePerMinute() int
	GetRateBurst() int
}

type Broker struct{}

var _ BrokerConfig = Broker{}

// GetSessionTTL bounds how long a browser login may take before the
// session is treated as expired.
func (Broker) GetSessionTTL() time.Duration {
	return 5 * time.Minute
}

func (Broker) GetSweepInterval() time.Duration {
	return 60 * time.Second
}

// GetStartRatePerMinute limits session creation per client IP, which
// caps session-exhaustion attempts against the store.
func (Broker) GetStartRatePerMinute() int {
	return 10
}

// GetPollRatePerMinute is higher than the start limit since polling is
// expected every couple of seconds during a login.
func (Broker) GetPollRatePerMinute() int {
	return 60
}

func (Broker) GetRateBurst() int {
	return 10
}
