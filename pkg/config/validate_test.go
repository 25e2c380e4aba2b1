package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func realConfig() *Config {
	cfg := Default()
	cfg.Hardware.Mode = ModeReal
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RealModeWithDefaultPins(t *testing.T) {
	if err := Validate(realConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := Default()
	cfg.Hardware.Mode = "firmata"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected mode error, got nil")
	}
}

func TestValidate_RealModeNeedsFourDirectionPins(t *testing.T) {
	cfg := realConfig()
	cfg.Hardware.DirectionPins = []string{"5", "6", "13"}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected direction pin error, got nil")
	}
}

func TestValidate_RealModeNeedsEchoPin(t *testing.T) {
	cfg := realConfig()
	cfg.Hardware.EchoPin = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected echo pin error, got nil")
	}
}

func TestValidate_DummyModeIgnoresPins(t *testing.T) {
	cfg := Default()
	cfg.Hardware.Mode = ModeDummy
	cfg.Hardware.EchoPin = ""
	cfg.Hardware.DirectionPins = nil
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SharedPWMChannel(t *testing.T) {
	cfg := Default()
	cfg.Hardware.PWMChannels = []int{3, 3}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected shared channel error, got nil")
	}
}

func TestValidate_PWMChannelOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Hardware.PWMChannels = []int{0, 16}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected range error, got nil")
	}
}

func TestValidate_BiasOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Motion.BiasRight = 101
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected bias error, got nil")
	}
}

func TestValidate_ZeroTurnHold(t *testing.T) {
	cfg := Default()
	cfg.Motion.TurnHoldMs = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected turn hold error, got nil")
	}
}

func TestValidate_SimInitialDistanceBeyondMax(t *testing.T) {
	cfg := Default()
	cfg.Sim.InitialDistanceCm = cfg.Sim.MaxDistanceCm + 1
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected sim distance error, got nil")
	}
}

func TestValidate_ScreenWithoutOutput(t *testing.T) {
	cfg := Default()
	cfg.Screen.Enabled = true
	cfg.Screen.Device = ""
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected screen error, got nil")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "chatty"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected log level error, got nil")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hardware.Mode != ModeSim {
		t.Fatalf("mode = %q, expected default %q", cfg.Hardware.Mode, ModeSim)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonarbot.yaml")
	data := []byte("hardware:\n  mode: dummy\nmotion:\n  bias_left: 3\n  bias_right: 1\n")
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Hardware.Mode != ModeDummy {
		t.Fatalf("mode = %q, expected %q", cfg.Hardware.Mode, ModeDummy)
	}
	if cfg.Motion.BiasLeft != 3 || cfg.Motion.BiasRight != 1 {
		t.Fatalf("bias = %d/%d, expected 3/1", cfg.Motion.BiasLeft, cfg.Motion.BiasRight)
	}
	if cfg.Hardware.BaudRate != 9600 {
		t.Fatalf("baud rate = %d, expected untouched default 9600", cfg.Hardware.BaudRate)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonarbot.yaml")
	if err := ioutil.WriteFile(path, []byte("motion:\n  turbo: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected strict parse error, got nil")
	}
}

func TestMarshalRoundTripsMode(t *testing.T) {
	out, err := Marshal(Default())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "in-use.yaml")
	if err := ioutil.WriteFile(path, out, 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("reloading marshalled config: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("marshalled defaults do not validate: %v", err)
	}
}
