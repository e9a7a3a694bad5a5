package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const prefix = "FLEETTELEMETRY"

var conf Config

// Parse reads the configuration file given as parameter.
func Parse(confFile string) (*Config, error) {
	setDefault()

	viper.SetEnvPrefix(prefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if len(confFile) > 0 {
		viper.SetConfigFile(confFile)

		err := viper.ReadInConfig()
		if err != nil {
			return &conf, fmt.Errorf("failed to read config file %v: %w", confFile, err)
		}
	}

	err := viper.Unmarshal(&conf)
	if err != nil {
		return &conf, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	err = validate(conf)
	if err != nil {
		return &conf, fmt.Errorf("invalid config: %w", err)
	}

	return &conf, nil
}

// KafkaConfig returns kafka configuration.
// Passwords and sensitive information should be hidden with by implementing Stringer.
func KafkaConfig() Kafka {
	return conf.Kafka
}

func setDefault() {
	viper.SetDefault("logs.level", 4)
	viper.SetDefault("logs.encoder", EncoderTypeConsole)
	viper.SetDefault("gracefulDuration", "10s")
	viper.SetDefault("metrics.port", 7777)
	viper.SetDefault("ws.port", 8080)

	viper.SetDefault("kafka.broker.urls", "localhost:9092")
	viper.SetDefault("kafka.broker.version", "3.6.0")
	viper.SetDefault("kafka.consumer.topic", "fleet-telemetry")
	viper.SetDefault("kafka.consumer.group", "fleet-telemetry-core")

	viper.SetDefault("store.driver", StoreDriverPgx)
	viper.SetDefault("store.maxOpenConns", 15)
	viper.SetDefault("store.maxIdleConns", 5)
	viper.SetDefault("store.pageSize", 500)
	viper.SetDefault("store.migrate", false)

	viper.SetDefault("valkey.expiration", "24h")

	viper.SetDefault("sync.throttleWindow", "30s")
	viper.SetDefault("sync.workers", 4)
	viper.SetDefault("sync.bufferSize", 1024)
	viper.SetDefault("sync.lateness", "5m")
	viper.SetDefault("sync.retry.maxAttempt", 3)
	viper.SetDefault("sync.retry.delay", "200ms")

	viper.SetDefault("liveness.sweepInterval", "60s")
	viper.SetDefault("liveness.driverTimeout", "80s")
	viper.SetDefault("liveness.carTimeout", "120s")

	viper.SetDefault("hub.bufferSize", 256)
	viper.SetDefault("hub.minPollInterval", "1s")
}

func validate(c Config) error {
	if c.Sync.ThrottleWindow <= 0 {
		return fmt.Errorf("sync.throttleWindow must be positive, got %v", c.Sync.ThrottleWindow)
	}

	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}

	if c.Liveness.SweepInterval <= 0 || c.Liveness.DriverTimeout <= 0 || c.Liveness.CarTimeout <= 0 {
		return fmt.Errorf("liveness durations must be positive")
	}

	switch c.Store.Driver {
	case StoreDriverPgx, StoreDriverPq:
	default:
		return fmt.Errorf("unexpected store driver %q", c.Store.Driver)
	}

	return nil
}
