package config

import "time"

// KafkaConfig holds upstream consumer settings.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	GroupID string   `mapstructure:"group_id" yaml:"group_id"`
	Topics  []string `mapstructure:"topics" yaml:"topics"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// Dispatch policy.
	FlushInterval         time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
	FlushBatchSize        int           `mapstructure:"flush_batch_size" yaml:"flush_batch_size"`
	MaxPending            int           `mapstructure:"max_pending" yaml:"max_pending"`
	HighPriorityThreshold int           `mapstructure:"high_priority_threshold" yaml:"high_priority_threshold"`
	SendBuffer            int           `mapstructure:"send_buffer" yaml:"send_buffer"`

	// Connection health.
	HealthInterval time.Duration `mapstructure:"health_interval" yaml:"health_interval"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	PingTimeout    time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	Kafka KafkaConfig `mapstructure:"kafka" yaml:"kafka"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",

		FlushInterval:         10 * time.Millisecond,
		FlushBatchSize:        100,
		MaxPending:            1024,
		HighPriorityThreshold: 8,
		SendBuffer:            32,

		HealthInterval: 30 * time.Second,
		IdleTimeout:    60 * time.Second,
		PingTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,

		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			GroupID: "broadcast-server",
			Topics:  []string{"predictions", "notifications", "game-events"},
		},
	}
}
