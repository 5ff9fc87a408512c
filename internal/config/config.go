// Package config loads the gateway's runtime configuration from the
// environment.
package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"go-simpler.org/env"
)

// C is the complete set of operational knobs. spec.md names exactly one
// tunable (the relay URL); the rest are the ambient knobs a real deployment
// needs (listen address, log level, storage paths, queue/timeouts) and
// default to sane values so the gateway runs with an empty environment.
type C struct {
	// RelayURL is the upstream WebSocket relay the driver and publish
	// worker dial. This is the one binding spec.md §6 names.
	RelayURL string `env:"RELAYGATE_RELAY_URL"`

	// ListenAddr is the gateway's own HTTP bind address.
	ListenAddr string `env:"RELAYGATE_LISTEN_ADDR"`

	// LogLevel is one of trace|debug|info|warn|error.
	LogLevel string `env:"RELAYGATE_LOG_LEVEL"`

	// CacheDir is the on-disk directory for the badger-backed cache. Empty
	// means resolve against XDG_CACHE_HOME via xdg.CacheFile.
	CacheDir string `env:"RELAYGATE_CACHE_DIR"`

	// RedisAddr is the host:port of the redis instance backing the publish
	// queue.
	RedisAddr string `env:"RELAYGATE_REDIS_ADDR"`

	// RedisQueueKey is the list key used for LPUSH/BLPOP of publish
	// messages.
	RedisQueueKey string `env:"RELAYGATE_REDIS_QUEUE_KEY"`

	// PublishOKTimeout bounds how long the publish worker waits for a
	// relay "OK" response before treating the event as not accepted.
	PublishOKTimeout time.Duration `env:"RELAYGATE_PUBLISH_OK_TIMEOUT"`
}

// Default returns the configuration with every field at its documented
// default, before environment overrides are applied.
func Default() C {
	cacheDir, err := xdg.CacheFile(filepath.Join("relaygate", "cache"))
	if err != nil {
		cacheDir = "./relaygate-cache"
	}
	return C{
		RelayURL:         "wss://relay.damus.io",
		ListenAddr:       ":8080",
		LogLevel:         "info",
		CacheDir:         cacheDir,
		RedisAddr:        "127.0.0.1:6379",
		RedisQueueKey:    "relaygate:publish",
		PublishOKTimeout: 3000 * time.Millisecond,
	}
}

// Load returns Default() overridden by whatever environment variables are
// set.
func Load() (cfg C, err error) {
	cfg = Default()
	err = env.Load(&cfg, nil)
	return
}
