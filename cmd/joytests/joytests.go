package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/sonarbot/pkg/joystick"
)

// Prints every joystick event with the command byte the remote would send
// for the controls currently held.
func main() {
	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	var keys joystick.Keymap
	joystickEvents := initJoystick(cancel, ctx)
	for je := range joystickEvents {
		keys.Apply(je)
		fmt.Printf("%s -> %q\n", je, keys.Command())
	}
}

func initJoystick(cancel context.CancelFunc, ctx context.Context) chan *joystick.Event {
	joystickEvents := make(chan *joystick.Event)
	firstLog := true
	for {
		jDev := os.Getenv("JOYSTICK_DEVICE")
		if jDev == "" {
			jDev = "/dev/input/js0"
		}
		j, err := joystick.NewJoystick(jDev)
		if err != nil {
			if firstLog {
				log.Info().Err(err).Msg("Waiting for joystick")
				firstLog = false
			}
			time.Sleep(1 * time.Second)
			continue
		}

		log.Info().Str("device", jDev).Msg("Opened joystick")
		go func() {
			defer cancel()
			err := loopReadingJoystickEvents(ctx, j, joystickEvents)
			log.Error().Err(err).Msg("Joystick failed")
		}()
		break
	}
	return joystickEvents
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Info().Str("signal", s.String()).Msg("Signal")
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}

func loopReadingJoystickEvents(ctx context.Context, j *joystick.Joystick, events chan *joystick.Event) error {
	defer close(events)
	defer j.Close()
	for ctx.Err() == nil {
		event, err := j.ReadEvent()
		if err != nil {
			return err
		}
		events <- event
	}
	return ctx.Err()
}
