package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/tigerbot-team/sonarbot/pkg/bridge"
	"github.com/tigerbot-team/sonarbot/pkg/joystick"
)

var CLI struct {
	Port     string        `help:"Serial port; listed and prompted for when empty."`
	Baud     int           `help:"Baud rate." default:"9600"`
	Joystick string        `help:"Joystick device; drive with the pad instead of typed commands."`
	Repeat   time.Duration `help:"How often the held joystick command is re-sent." default:"100ms"`

	MQTTBroker   string `help:"MQTT broker host:port to bridge status and commands through." name:"mqtt-broker"`
	MQTTPrefix   string `help:"MQTT topic prefix." name:"mqtt-prefix" default:"sonarbot"`
	MQTTClientID string `help:"MQTT client ID." name:"mqtt-client-id" default:"sonarbot-remote"`
	Listen       string `help:"Serve the WebSocket bridge at /ws on this address, e.g. :8080."`

	Debug bool `help:"Debug logging."`
}

func main() {
	kong.Parse(&CLI, kong.Description("Operator console for the sonarbot serial link."))

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	stdin := bufio.NewScanner(os.Stdin)
	portName := CLI.Port
	if portName == "" {
		var err error
		portName, err = choosePort(stdin)
		if err != nil {
			log.Fatal().Err(err).Msg("No serial port")
		}
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: CLI.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		log.Fatal().Err(err).Str("port", portName).Msg("Failed to open serial port")
	}
	defer port.Close()
	log.Info().Str("port", portName).Int("baud", CLI.Baud).Msg("Connected")

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registerSignalHandlers(cancel)

	var writeLock sync.Mutex
	send := func(cmd []byte) error {
		writeLock.Lock()
		defer writeLock.Unlock()
		_, err := port.Write(cmd)
		return err
	}
	forward := func(cmd []byte) {
		if err := send(cmd); err != nil {
			log.Error().Err(err).Msg("Failed to send command")
		}
	}

	var sinks []func(line string)
	if CLI.MQTTBroker != "" {
		m, err := bridge.DialMQTT(CLI.MQTTBroker, CLI.MQTTClientID, CLI.MQTTPrefix, forward)
		if err != nil {
			log.Fatal().Err(err).Msg("MQTT bridge failed")
		}
		defer m.Close()
		sinks = append(sinks, func(line string) {
			if err := m.PublishStatus(line); err != nil {
				log.Warn().Err(err).Msg("MQTT publish failed")
			}
		})
	}
	if CLI.Listen != "" {
		ws := bridge.NewWebSocket(forward)
		mux := http.NewServeMux()
		mux.Handle("/ws", ws)
		go func() {
			log.Info().Str("addr", CLI.Listen).Msg("Serving WebSocket bridge")
			if err := http.ListenAndServe(CLI.Listen, mux); err != nil {
				log.Error().Err(err).Msg("WebSocket bridge stopped")
			}
		}()
		sinks = append(sinks, ws.Broadcast)
	}

	go receive(ctx, cancel, port, sinks)

	if CLI.Joystick != "" {
		j, err := joystick.NewJoystick(CLI.Joystick)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open joystick")
		}
		defer j.Close()
		go func() {
			defer cancel()
			err := joystick.Repeat(ctx, j, CLI.Repeat, func(b byte) error {
				return send([]byte{b})
			})
			log.Info().Err(err).Msg("Joystick stopped")
		}()
	}

	go func() {
		defer cancel()
		for stdin.Scan() {
			command := stdin.Text()
			if command == "exit" {
				return
			}
			forward([]byte(command))
		}
	}()

	<-ctx.Done()
}

func choosePort(stdin *bufio.Scanner) (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	fmt.Println("Port:")
	if !stdin.Scan() {
		return "", fmt.Errorf("no port chosen")
	}
	return strings.TrimSpace(stdin.Text()), nil
}

// receive prints each status line and hands it to the bridges.
func receive(ctx context.Context, cancel context.CancelFunc, port serial.Port, sinks []func(line string)) {
	defer cancel()
	lines := bufio.NewScanner(port)
	for lines.Scan() {
		line := lines.Text() + "\n"
		fmt.Print(line)
		for _, sink := range sinks {
			sink(line)
		}
	}
	if ctx.Err() == nil {
		log.Error().Err(lines.Err()).Msg("Serial link closed")
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Info().Str("signal", s.String()).Msg("Signal")
		cancelFunc()
	}()
}
