package internal

import "time"

// Config holds the server environment. Decoded with Netflix/go-env;
// every knob has a default so a bare `chatroomd-server` starts locally.
type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	BadgerFilepath string `env:"BADGER_FILEPATH,default=./data/rooms"`

	// One buffered delivery channel per connection; a subscriber whose
	// buffer stays full past DELIVERY_TIMEOUT is pruned.
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,default=2s"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s"`

	PruneQueueSize   int           `env:"PRUNE_QUEUE_SIZE,default=128"`
	StatsInterval    time.Duration `env:"STATS_INTERVAL,default=30s"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH,default=4096"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}
