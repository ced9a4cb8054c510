package api

import (
	"time"

	"menu-api/navigation"
)

// Options tunes session lifetime, the navigation layout and the order
// notification pool.
type Options struct {
	SessionTTL time.Duration
	Navigation navigation.Config
	Notify     NotifyOptions
	// Clock drives navigation timers; nil uses the runtime timers.
	Clock navigation.Clock
}

// OptionsFromEnv reads Options from the environment, falling back to
// defaults for unset variables. Invalid values are fatal.
func OptionsFromEnv() Options {
	nav := navigation.DefaultConfig()
	nav.SettleDelay = EnvDuration("NAV_SETTLE_DELAY", nav.SettleDelay)
	nav.HeaderOffset = envFloat("NAV_HEADER_OFFSET", nav.HeaderOffset)

	notify := NotifyOptions{
		Workers:        envInt("NOTIFY_WORKERS", 8),
		Buffer:         envInt("NOTIFY_BUFFER", 1024),
		Timeout:        EnvDuration("NOTIFY_TIMEOUT", 30*time.Second),
		HandoffTimeout: EnvDuration("NOTIFY_HANDOFF_TIMEOUT", 15*time.Millisecond),
	}
	// Without workers nothing drains the buffer; publish every order inline.
	if notify.Workers == 0 {
		notify.Buffer, notify.HandoffTimeout = 0, 0
	}

	return Options{
		SessionTTL: EnvDuration("SESSION_TTL", 2*time.Hour),
		Navigation: nav,
		Notify:     notify,
	}
}
