package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/firmware"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/irq"
	"github.com/tigerbot-team/sonarbot/pkg/motion"
	"github.com/tigerbot-team/sonarbot/pkg/scheduler"
	"github.com/tigerbot-team/sonarbot/pkg/screen"
	"github.com/tigerbot-team/sonarbot/pkg/sim"
	"github.com/tigerbot-team/sonarbot/pkg/sound"
)

var CLI struct {
	Config   string `help:"YAML config file." type:"path" default:"sonarbot.yaml"`
	Mode     string `help:"Override hardware.mode: real, dummy or sim."`
	LogLevel string `help:"Override log.level."`
	Console  bool   `help:"Read debug commands from stdin." default:"true" negatable:""`
}

func main() {
	fmt.Println("---- sonarbot ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	kong.Parse(&CLI, kong.Description("Ultrasonic obstacle-stopping rover firmware."))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if CLI.Mode != "" {
		cfg.Hardware.Mode = CLI.Mode
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Println("Invalid config:", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	irqs := irq.New()
	hw, world, err := buildHardware(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise hardware")
	}
	defer func() {
		log.Info().Msg("Releasing hardware")
		if err := hw.Close(); err != nil {
			log.Error().Err(err).Msg("Hardware close failed")
		}
	}()

	engine := firmware.New(hw, irqs, cfg.Motion)
	go irqs.Run(ctx)
	if err := engine.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start hardware")
	}
	if world == nil {
		// The simulated board is its own timer.
		go hardware.RunTicker(ctx, scheduler.TickPeriod, irqs)
	}

	if cfg.Screen.Enabled {
		go func() {
			if err := screen.Loop(ctx, cfg.Screen, engine); err != nil {
				log.Warn().Err(err).Msg("Screen disabled")
			}
		}()
	}

	var player *sound.Player
	if cfg.Sound.ObstacleWAV != "" {
		player = sound.NewPlayer()
		defer player.Close()
	}
	go watchEvents(ctx, engine, player, cfg.Sound.ObstacleWAV)

	if CLI.Console {
		go runConsole(ctx, cancel, &Context{engine: engine, world: world})
	}

	if err := engine.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("Main loop failed")
	}
	log.Info().Interface("final", engine.Snapshot()).Msg("Shut down")
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli})
	}
}

func buildHardware(cfg *config.Config) (hardware.Interface, *sim.World, error) {
	switch cfg.Hardware.Mode {
	case config.ModeReal:
		hw, err := hardware.New(cfg.Hardware)
		return hw, nil, err
	case config.ModeDummy:
		d := hardware.NewDummy()
		d.Verbose = true
		return d, nil, nil
	default:
		world := sim.NewWorld(cfg.Sim)
		board, tty, err := sim.NewPTYBoard(world)
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("Connect the remote console to %s\n", tty)
		return board, world, nil
	}
}

func watchEvents(ctx context.Context, engine *firmware.Engine, player *sound.Player, obstacleWAV string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-engine.Events():
			switch ev.Kind {
			case firmware.ObstacleStop:
				log.Warn().Uint32("cm", ev.DistanceCm).Msg("Obstacle ahead, stopping")
				if player != nil {
					player.Play(obstacleWAV)
				}
			case firmware.CommandExecuted:
				log.Info().Str("command", motion.Describe(ev.Code)).Uint32("cm", ev.DistanceCm).Msg("Command")
			case firmware.DistanceMeasured:
				log.Debug().Uint32("cm", ev.DistanceCm).Msg("Distance")
			}
		}
	}
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
