package config

import "time"

type Config struct {
	GracefulDuration time.Duration
	Metrics          Metrics
	Logs             Logs
	DeadLetterQueue  S3
	Kafka            Kafka
	Store            Store
	Valkey           Valkey
	Sync             Sync
	Liveness         Liveness
	Hub              Hub
	WS               WS
}

type Metrics struct {
	Port int
}

type Logs struct {
	Level   int
	Encoder EncoderType
}

type EncoderType string

const (
	EncoderTypeJson    EncoderType = "json"
	EncoderTypeConsole EncoderType = "console"
)

// S3 is optional: an empty bucket disables the dead letter queue.
type S3 struct {
	Bucket       string
	KeyPrefix    string
	BaseEndpoint string
	Region       string
	UsePathStyle bool
	Creds        AWSCreds
}

type AWSCreds struct {
	AccessKeyID     string
	SecretAccessKey string
}

func (c AWSCreds) String() string {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return "creds set"
	}

	return "no creds"
}

type Kafka struct {
	Broker   KafkaBroker
	Consumer KafkaConsumer
}

type KafkaBroker struct {
	URLs    string
	Version string
	TLS     bool
	Creds   KafkaCreds
}

type SASLMechanism string

const (
	SASLMechanismNone        SASLMechanism = ""
	SASLMechanismPlain       SASLMechanism = "PLAIN"
	SASLMechanismScramSHA256 SASLMechanism = "SCRAM-SHA-256"
	SASLMechanismScramSHA512 SASLMechanism = "SCRAM-SHA-512"
)

type KafkaCreds struct {
	Mechanism SASLMechanism
	User      string
	Password  string
}

func (c KafkaCreds) String() string {
	if c.Mechanism == SASLMechanismNone {
		return "no sasl"
	}

	return string(c.Mechanism) + " creds set"
}

type KafkaConsumer struct {
	Topic string
	Group string
}

type StoreDriver string

const (
	StoreDriverPgx StoreDriver = "pgx"
	StoreDriverPq  StoreDriver = "postgres"
)

type Store struct {
	Driver       StoreDriver
	DSN          StoreDSN
	MaxOpenConns int
	MaxIdleConns int
	PageSize     int
	Migrate      bool
}

type StoreDSN string

func (d StoreDSN) String() string {
	if d != "" {
		return "dsn set"
	}

	return "no dsn"
}

// Valkey is optional: an empty URL disables the state snapshot.
type Valkey struct {
	URL        string
	Expiration time.Duration
	Creds      ValkeyCreds
}

type ValkeyCreds struct {
	Password string
}

func (c ValkeyCreds) String() string {
	if c.Password != "" {
		return "password set"
	}

	return "no password"
}

type Sync struct {
	ThrottleWindow time.Duration
	Workers        int
	BufferSize     int
	Lateness       time.Duration
	Retry          Retry
}

type Retry struct {
	MaxAttempt uint
	Delay      time.Duration
}

type Liveness struct {
	SweepInterval time.Duration
	DriverTimeout time.Duration
	CarTimeout    time.Duration
}

type Hub struct {
	BufferSize      int
	MinPollInterval time.Duration
}

type WS struct {
	Port int
}
