package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/sonarbot/pkg/firmware"
	"github.com/tigerbot-team/sonarbot/pkg/sim"
)

var Console struct {
	Status   StatusCmd   `cmd:"" help:"Show the engine state."`
	Send     SendCmd     `cmd:"" help:"Inject command bytes as if received on the serial line."`
	Bias     BiasCmd     `cmd:"" help:"Adjust a wheel's duty bias."`
	Distance DistanceCmd `cmd:"" help:"Move the simulated obstacle."`
	Quit     QuitCmd     `cmd:"" help:"Quit"`
}

type Context struct {
	engine *firmware.Engine
	world  *sim.World
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	s := ctx.engine.Snapshot()
	fmt.Printf("distance=%dcm blink=%d led=%v direction=%v speed=%d%% duty=%v\n",
		s.DistanceCm, s.BlinkPeriod, s.LED, s.Direction, s.Speed, s.Duty)
	fmt.Printf("message=%q sending=%v last=%q faults=%d dropped(cmd/irq/event)=%d/%d/%d ticks=%d\n",
		s.Message, s.Sending, s.LastCommand, s.Faults,
		s.DroppedCommands, s.DroppedInterrupts, s.DroppedEvents, s.Ticks)
	fmt.Printf("echo=%v pulse=%d resend=%d trigger=%d\n",
		s.Echo, s.PulseTicks, s.Counters.Resend, s.Counters.Trigger)
	return nil
}

type SendCmd struct {
	Bytes string `arg:"" name:"bytes" help:"Command characters, e.g. w or 7e."`
}

func (c *SendCmd) Run(ctx *Context) error {
	for i := 0; i < len(c.Bytes); i++ {
		if !ctx.engine.Inject(c.Bytes[i]) {
			return errors.Errorf("interrupt queue full at %q", c.Bytes[i])
		}
	}
	return nil
}

type BiasCmd struct {
	Wheel string `arg:"" enum:"left,right" help:"left or right."`
	Delta int    `arg:"" help:"Change in percentage points."`
}

func (c *BiasCmd) Run(ctx *Context) error {
	t := ctx.engine.Tunables.Find("bias-" + c.Wheel)
	if t == nil {
		return errors.Errorf("no bias for wheel %s", c.Wheel)
	}
	v := t.Add(c.Delta)
	ctx.engine.BiasChanged()
	fmt.Printf("%s = %d\n", t.Name, v)
	return nil
}

type DistanceCmd struct {
	Cm float64 `arg:"" help:"Obstacle distance in centimetres."`
}

func (c *DistanceCmd) Run(ctx *Context) error {
	if ctx.world == nil {
		return errors.New("not simulating")
	}
	ctx.world.SetDistanceCm(c.Cm)
	return nil
}

type QuitCmd struct{}

func (q *QuitCmd) Run(ctx *Context) error {
	return Quit
}

var Quit = errors.New("Quit")

func runConsole(ctx context.Context, cancel context.CancelFunc, cctx *Context) {
	k, err := kong.New(&Console, kong.Exit(func(int) {}))
	if err != nil {
		panic(err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for ctx.Err() == nil {
		fmt.Println("Enter a command:")
		if !scanner.Scan() {
			// No terminal attached; keep running without a console.
			return
		}
		command := strings.TrimSpace(scanner.Text())
		if command == "" {
			continue
		}
		parsed, err := k.Parse(strings.Fields(command))
		if err != nil {
			fmt.Println("parse error:", err)
			continue
		}
		err = parsed.Run(cctx)
		if err == Quit {
			break
		} else if err != nil {
			fmt.Println("ERROR:", err)
			continue
		}
	}
	cancel()
}
