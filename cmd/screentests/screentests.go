package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/sonarbot/pkg/config"
	"github.com/tigerbot-team/sonarbot/pkg/firmware"
	"github.com/tigerbot-team/sonarbot/pkg/hardware"
	"github.com/tigerbot-team/sonarbot/pkg/screen"
	"github.com/tigerbot-team/sonarbot/pkg/sonar"
)

var CLI struct {
	Device string `help:"Framebuffer device." default:"/dev/fb1"`
	PNG    string `help:"Write frames to this PNG instead of the framebuffer."`
}

// fakeSource serves a snapshot edited from stdin.
type fakeSource struct {
	lock sync.Mutex
	snap firmware.Snapshot
}

func (f *fakeSource) Snapshot() firmware.Snapshot {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.snap
}

// Type a distance in cm at the prompt to redraw the display for it.
func main() {
	kong.Parse(&CLI)
	ctx := context.Background()

	src := &fakeSource{snap: firmware.Snapshot{
		DistanceCm: 100,
		Direction:  hardware.Forward,
		Speed:      70,
		Duty:       [hardware.NumWheels]int{70, 70},
		Message:    "FRENTE\n",
	}}
	go func() {
		err := screen.Loop(ctx, config.ScreenConfig{Enabled: true, Device: CLI.Device, PNGPath: CLI.PNG}, src)
		fmt.Println("Screen stopped:", err)
		os.Exit(1)
	}()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		d, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || d < 0 {
			fmt.Println("Enter a distance in cm")
			continue
		}
		src.lock.Lock()
		src.snap.DistanceCm = uint32(d)
		src.snap.BlinkPeriod = sonar.BlinkPeriod(uint32(d))
		src.snap.LED = !src.snap.LED
		src.lock.Unlock()
	}
}
