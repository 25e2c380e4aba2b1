package config

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	yaml "gopkg.in/yaml.v2"
)

const (
	ModeReal  = "real"
	ModeDummy = "dummy"
	ModeSim   = "sim"
)

type Config struct {
	Hardware HardwareConfig `yaml:"hardware"`
	Motion   MotionConfig   `yaml:"motion"`
	Sim      SimConfig      `yaml:"sim"`
	Screen   ScreenConfig   `yaml:"screen"`
	Sound    SoundConfig    `yaml:"sound"`
	Log      LogConfig      `yaml:"log"`
}

// ---- HARDWARE ----

type HardwareConfig struct {
	Mode string `yaml:"mode"`

	// periph.io pin names (BCM numbers on a Raspberry Pi).
	TriggerPin    string   `yaml:"trigger_pin"`
	EchoPin       string   `yaml:"echo_pin"`
	LEDPin        string   `yaml:"led_pin"`
	DirectionPins []string `yaml:"direction_pins"` // H-bridge IN1..IN4

	I2CDevice   string `yaml:"i2c_device"`
	PWMChannels []int  `yaml:"pwm_channels"` // left, right

	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
}

// ---- MOTION ----

type MotionConfig struct {
	// Per-wheel duty-cycle bias in percentage points, subtracted from the
	// selected speed.
	BiasLeft  int `yaml:"bias_left"`
	BiasRight int `yaml:"bias_right"`

	// How long a rotate command drives the wheels before stopping.
	TurnHoldMs int `yaml:"turn_hold_ms"`
}

// ---- SIMULATION ----

type SimConfig struct {
	InitialDistanceCm int `yaml:"initial_distance_cm"`
	MaxDistanceCm     int `yaml:"max_distance_cm"`
	// Closing speed towards the obstacle while driving forward.
	ApproachCmPerSec int `yaml:"approach_cm_per_sec"`
}

// ---- OBSERVERS ----

type ScreenConfig struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"`   // framebuffer, e.g. /dev/fb1
	PNGPath string `yaml:"png_path"` // used instead of Device when set
}

type SoundConfig struct {
	ObstacleWAV string `yaml:"obstacle_wav"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

func Default() *Config {
	return &Config{
		Hardware: HardwareConfig{
			Mode:          ModeSim,
			TriggerPin:    "17",
			EchoPin:       "27",
			LEDPin:        "22",
			DirectionPins: []string{"5", "6", "13", "19"},
			I2CDevice:     "/dev/i2c-1",
			PWMChannels:   []int{0, 1},
			SerialPort:    "/dev/serial0",
			BaudRate:      9600,
		},
		Motion: MotionConfig{
			TurnHoldMs: 50,
		},
		Sim: SimConfig{
			InitialDistanceCm: 150,
			MaxDistanceCm:     400,
			ApproachCmPerSec:  20,
		},
		Screen: ScreenConfig{
			Device: "/dev/fb1",
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load reads a YAML config on top of the defaults. A missing file is not an
// error: the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		return cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// Marshal renders the config in use, for logging or writing back out.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
