package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	h := cfg.Hardware

	switch h.Mode {
	case ModeReal:
		for name, pin := range map[string]string{
			"trigger_pin": h.TriggerPin,
			"echo_pin":    h.EchoPin,
			"led_pin":     h.LEDPin,
		} {
			if pin == "" {
				return fmt.Errorf("hardware.%s is required in %s mode", name, h.Mode)
			}
		}
		if len(h.DirectionPins) != 4 {
			return fmt.Errorf("hardware.direction_pins: need 4 pins (IN1..IN4), got %d", len(h.DirectionPins))
		}
		if h.I2CDevice == "" {
			return fmt.Errorf("hardware.i2c_device is required in %s mode", h.Mode)
		}
		if h.SerialPort == "" {
			return fmt.Errorf("hardware.serial_port is required in %s mode", h.Mode)
		}
	case ModeDummy, ModeSim:
	default:
		return fmt.Errorf("hardware.mode: unknown mode %q (want %s, %s or %s)", h.Mode, ModeReal, ModeDummy, ModeSim)
	}

	if len(h.PWMChannels) != 2 {
		return fmt.Errorf("hardware.pwm_channels: need 2 channels (left, right), got %d", len(h.PWMChannels))
	}
	if h.PWMChannels[0] == h.PWMChannels[1] {
		return fmt.Errorf("hardware.pwm_channels: left and right share channel %d", h.PWMChannels[0])
	}
	for _, ch := range h.PWMChannels {
		if ch < 0 || ch > 15 {
			return fmt.Errorf("hardware.pwm_channels: channel %d out of range 0-15", ch)
		}
	}
	if h.BaudRate <= 0 {
		return fmt.Errorf("hardware.baud_rate must be > 0, got %d", h.BaudRate)
	}

	for name, bias := range map[string]int{
		"bias_left":  cfg.Motion.BiasLeft,
		"bias_right": cfg.Motion.BiasRight,
	} {
		if bias < 0 || bias > 100 {
			return fmt.Errorf("motion.%s must be within 0-100, got %d", name, bias)
		}
	}

	if cfg.Motion.TurnHoldMs <= 0 {
		return fmt.Errorf("motion.turn_hold_ms must be > 0, got %d", cfg.Motion.TurnHoldMs)
	}

	if h.Mode == ModeSim {
		s := cfg.Sim
		if s.MaxDistanceCm <= 0 {
			return fmt.Errorf("sim.max_distance_cm must be > 0, got %d", s.MaxDistanceCm)
		}
		if s.InitialDistanceCm <= 0 || s.InitialDistanceCm > s.MaxDistanceCm {
			return fmt.Errorf("sim.initial_distance_cm must be within 1-%d, got %d", s.MaxDistanceCm, s.InitialDistanceCm)
		}
		if s.ApproachCmPerSec < 0 {
			return fmt.Errorf("sim.approach_cm_per_sec must not be negative, got %d", s.ApproachCmPerSec)
		}
	}

	if cfg.Screen.Enabled && cfg.Screen.Device == "" && cfg.Screen.PNGPath == "" {
		return fmt.Errorf("screen is enabled but neither screen.device nor screen.png_path is set")
	}

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %v", err)
	}

	return nil
}
