// Package config loads the runner's own YAML configuration. The
// downstream plugin's configuration (logging level, worker-thread count,
// gRPC/Prometheus bind addresses) is a separate JSON document that the
// plugin sink owns parsing for; this package only covers the fields this
// repository itself consumes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// StreamNames maps each fixed stream kind to the JetStream stream name it
// is bound to.
type StreamNames struct {
	Account       string `yaml:"account"`
	Slot          string `yaml:"slot"`
	Transaction   string `yaml:"transaction"`
	Entry         string `yaml:"entry"`
	BlockMetadata string `yaml:"block_metadata"`
}

// ConsumersConfig configures the substrate pull consumers shared by every
// stream kind.
type ConsumersConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// FetchersConfig configures the fetcher side of the stream pipeline.
type FetchersConfig struct {
	ChannelBound int `yaml:"channel_bound"`
}

// NATSConfig is the `nats.*` section of the configuration file.
type NATSConfig struct {
	URL       string          `yaml:"url"`
	Streams   StreamNames     `yaml:"streams"`
	Consumers ConsumersConfig `yaml:"consumers"`
	Fetchers  FetchersConfig  `yaml:"fetchers"`
}

// CacheConfig configures the refreshing fallback cache shared by the
// quota checker (and any future consumer of cached tenant state).
type CacheConfig struct {
	RedisAddr   string   `yaml:"redis_addr"`
	TTL         Duration `yaml:"ttl"`
	StaleBuffer Duration `yaml:"stale_buffer"`
	KeyPrefix   string   `yaml:"key_prefix"`
}

// QuotaConfig configures the periodic over-quota sweep.
type QuotaConfig struct {
	CheckInterval Duration `yaml:"check_interval"`
	BatchSize     int      `yaml:"batch_size"`
}

// BillingConfig configures the billing event bus producer.
type BillingConfig struct {
	Brokers      []string `yaml:"brokers"`
	Topic        string   `yaml:"topic"`
	ChannelSize  int      `yaml:"channel_size"`
	QueueTimeout Duration `yaml:"queue_timeout"`
	SASLUsername string   `yaml:"sasl_username"`
	SASLPassword string   `yaml:"sasl_password"`
}

// AdminConfig configures the process's own metrics/health HTTP surface.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the top-level shape of the runner's YAML configuration file.
type Config struct {
	NATS    NATSConfig    `yaml:"nats"`
	Cache   CacheConfig   `yaml:"cache"`
	Quota   QuotaConfig   `yaml:"quota"`
	Billing BillingConfig `yaml:"billing"`
	Admin   AdminConfig   `yaml:"admin"`
}

// defaults returns a Config pre-populated with every default spec.md §6
// names, so Load only needs to unmarshal the fields the file overrides.
func defaults() Config {
	return Config{
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
			Streams: StreamNames{
				Account:       "accounts",
				Slot:          "slots",
				Transaction:   "transactions",
				Entry:         "entries",
				BlockMetadata: "block_metadata",
			},
			Consumers: ConsumersConfig{MaxBatchSize: 64},
			Fetchers:  FetchersConfig{ChannelBound: 5000},
		},
		Cache: CacheConfig{
			RedisAddr:   "localhost:6379",
			TTL:         Duration(time.Minute),
			StaleBuffer: Duration(2 * time.Minute),
			KeyPrefix:   "nats-geyser-runner",
		},
		Quota: QuotaConfig{
			CheckInterval: Duration(time.Minute),
			BatchSize:     64,
		},
		Billing: BillingConfig{
			Topic:        "websocket-subscriptions",
			ChannelSize:  10000,
			QueueTimeout: Duration(5 * time.Second),
		},
		Admin: AdminConfig{Addr: ":9090"},
	}
}

// Load reads and parses the YAML file at path, applying defaults for any
// field the file leaves unset.
func Load(path string) (Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, nil
}
