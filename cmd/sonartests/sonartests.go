package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/sonarbot/pkg/scheduler"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
)

var CLI struct {
	Trigger string `help:"Trigger pin name." default:"17"`
	Echo    string `help:"Echo pin name." default:"27"`
	Count   int    `help:"Number of measurements; 0 runs forever."`
}

func main() {
	kong.Parse(&CLI, kong.Description("Bench test for the ultrasonic sensor."))

	if _, err := host.Init(); err != nil {
		fmt.Println("Failed to initialise periph", err)
		os.Exit(1)
	}
	trigger := gpioreg.ByName(CLI.Trigger)
	echo := gpioreg.ByName(CLI.Echo)
	if trigger == nil || echo == nil {
		fmt.Println("Unknown pin", CLI.Trigger, CLI.Echo)
		os.Exit(1)
	}
	if err := trigger.Out(gpio.Low); err != nil {
		panic(err)
	}
	if err := echo.In(gpio.PullDown, gpio.BothEdges); err != nil {
		panic(err)
	}

	period := time.Duration(scheduler.TriggerPeriod) * scheduler.TickPeriod
	for n := 0; CLI.Count == 0 || n < CLI.Count; n++ {
		start := time.Now()
		width, err := measure(trigger, echo)
		if err != nil {
			fmt.Println("Measurement failed:", err)
		} else {
			ticks := uint32(width / scheduler.TickPeriod)
			d := sonar.Distance(ticks)
			fmt.Printf("width=%v ticks=%d distance=%dcm blink=%d report=%q\n",
				width, ticks, d, sonar.BlinkPeriod(d), sonar.Report(d))
		}
		time.Sleep(period - time.Since(start))
	}
}

func measure(trigger, echo gpio.PinIO) (time.Duration, error) {
	if err := trigger.Out(gpio.High); err != nil {
		return 0, err
	}
	time.Sleep(scheduler.TickPeriod)
	if err := trigger.Out(gpio.Low); err != nil {
		return 0, err
	}

	var start time.Time
	for {
		if !echo.WaitForEdge(time.Second) {
			return 0, fmt.Errorf("no echo")
		}
		level := echo.Read()
		if level == gpio.High {
			start = time.Now()
			continue
		}
		if !start.IsZero() {
			return time.Since(start), nil
		}
	}
}
