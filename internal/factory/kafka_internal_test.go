package factory

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpulse/fleet-telemetry/internal/config"
)

func TestConfigureSASL(t *testing.T) {
	tests := []struct {
		name      string
		mechanism config.SASLMechanism
		expected  sarama.SASLMechanism
		scram     bool
	}{
		{name: "plain", mechanism: config.SASLMechanismPlain, expected: sarama.SASLTypePlaintext},
		{name: "scram sha256", mechanism: config.SASLMechanismScramSHA256, expected: sarama.SASLTypeSCRAMSHA256, scram: true},
		{name: "scram sha512", mechanism: config.SASLMechanismScramSHA512, expected: sarama.SASLTypeSCRAMSHA512, scram: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := sarama.NewConfig()

			err := configureSASL(conf, config.KafkaCreds{Mechanism: tt.mechanism, User: "fleet", Password: "secret"})
			require.NoError(t, err)

			assert.True(t, conf.Net.SASL.Enable)
			assert.Equal(t, tt.expected, conf.Net.SASL.Mechanism)
			assert.Equal(t, "fleet", conf.Net.SASL.User)
			assert.Equal(t, "secret", conf.Net.SASL.Password)

			if tt.scram {
				require.NotNil(t, conf.Net.SASL.SCRAMClientGeneratorFunc)

				client := conf.Net.SASL.SCRAMClientGeneratorFunc()
				require.NoError(t, client.Begin("fleet", "secret", ""))

				first, err := client.Step("")
				require.NoError(t, err)
				assert.Contains(t, first, "n=fleet")
				assert.False(t, client.Done())
			}
		})
	}
}

func TestConfigureSASLNone(t *testing.T) {
	conf := sarama.NewConfig()

	require.NoError(t, configureSASL(conf, config.KafkaCreds{}))
	assert.False(t, conf.Net.SASL.Enable)
}

func TestConfigureSASLUnknown(t *testing.T) {
	err := configureSASL(sarama.NewConfig(), config.KafkaCreds{Mechanism: "GSSAPI"})
	assert.ErrorContains(t, err, "unexpected sasl mechanism")
}

func TestCreateSaramaConfig(t *testing.T) {
	conf, err := createSaramaConfig(config.Kafka{
		Broker:   config.KafkaBroker{Version: "3.6.0", TLS: true},
		Consumer: config.KafkaConsumer{Group: "fleet-telemetry-core"},
	})
	require.NoError(t, err)

	assert.Equal(t, sarama.OffsetNewest, conf.Consumer.Offsets.Initial)
	assert.True(t, conf.Consumer.Return.Errors)
	assert.True(t, conf.Net.TLS.Enable)
	assert.Equal(t, sarama.V3_6_0_0, conf.Version)
	assert.NotEmpty(t, conf.ClientID)

	_, err = createSaramaConfig(config.Kafka{Broker: config.KafkaBroker{Version: "not a version"}})
	assert.Error(t, err)
}
