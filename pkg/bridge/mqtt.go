// Package bridge republishes the robot's status lines and accepts commands
// from outside the serial console: an MQTT broker and WebSocket clients.
package bridge

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CommandFunc receives command bytes from a bridge.
type CommandFunc func(cmd []byte)

type MQTT struct {
	client mqtt.Client
	prefix string
}

func StatusTopic(prefix string) string  { return prefix + "/status" }
func CommandTopic(prefix string) string { return prefix + "/command" }

// DialMQTT connects to broker (host:port) and forwards every message on
// <prefix>/command to commands. The subscription is renewed on reconnect.
func DialMQTT(broker, clientID, prefix string, commands CommandFunc) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(client mqtt.Client) {
		log.Info().Str("broker", broker).Msg("Connected to MQTT broker")
		topic := CommandTopic(prefix)
		token := client.Subscribe(topic, 0, commandHandler(commands))
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe")
			return
		}
		log.Info().Str("topic", topic).Msg("Subscribed")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// Connect retries in the background; carry on without it.
		log.Warn().Str("broker", broker).Msg("MQTT broker not reachable yet, retrying in background")
	} else if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "connecting to MQTT broker %s", broker)
	}
	return &MQTT{client: client, prefix: prefix}, nil
}

func commandHandler(commands CommandFunc) mqtt.MessageHandler {
	return func(client mqtt.Client, msg mqtt.Message) {
		if len(msg.Payload()) == 0 {
			return
		}
		commands(msg.Payload())
	}
}

// PublishStatus publishes one status line.
func (m *MQTT) PublishStatus(line string) error {
	token := m.client.Publish(StatusTopic(m.prefix), 0, false, line)
	token.Wait()
	return token.Error()
}

func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
