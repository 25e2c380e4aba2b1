// Package joystick turns a Linux joystick (/dev/input/jsN) into robot
// command bytes.
package joystick

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type EventType uint8

const (
	EventTypeButton EventType = 0x01
	EventTypeAxis   EventType = 0x02

	// Set on the synthetic events the driver sends on open to report the
	// initial state of every control.
	eventTypeInit = 0x80
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Controls the remote uses, numbered as the PS4 pad reports them. Axis
// values run from -32767 (up or left) to +32767 (down or right).
const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3

	AxisLStickX = 0
	AxisLStickY = 1
	AxisDPadX   = 6
	AxisDPadY   = 7
)

// eventSize is the size of struct js_event: u32 time (ms), s16 value,
// u8 type, u8 number.
const eventSize = 8

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

// Joystick decodes the event stream. Device timestamps are rebased onto the
// wall clock at the first event.
type Joystick struct {
	r   io.ReadCloser
	buf [eventSize]byte

	started bool
	startMs uint32
	start   time.Time
}

func NewJoystick(device string) (*Joystick, error) {
	f, err := os.Open(device)
	if err != nil {
		return nil, errors.Wrapf(err, "opening joystick %s", device)
	}
	return New(f), nil
}

// New reads events from an already open event stream.
func New(r io.ReadCloser) *Joystick {
	return &Joystick{r: r}
}

func (j *Joystick) ReadEvent() (*Event, error) {
	if _, err := io.ReadFull(j.r, j.buf[:]); err != nil {
		return nil, err
	}
	ms := binary.LittleEndian.Uint32(j.buf[0:4])
	if !j.started {
		j.started = true
		j.startMs = ms
		j.start = time.Now()
	}
	return &Event{
		Time:   j.start.Add(time.Duration(ms-j.startMs) * time.Millisecond),
		Value:  int16(binary.LittleEndian.Uint16(j.buf[4:6])),
		Type:   EventType(j.buf[6] &^ eventTypeInit),
		Number: j.buf[7],
	}, nil
}

func (j *Joystick) Close() error {
	return j.r.Close()
}

// AxisThreshold is how far a stick must move before it counts as held.
const AxisThreshold = 16000

// IdleCommand is sent when nothing is held.
const IdleCommand = 'q'

const (
	heldUp = iota
	heldLeft
	heldDown
	heldRight
	held70
	held80
	held100
	heldReport

	numHeld
)

// priority lists the held inputs in the order they win, with the command
// each one sends.
var priority = [numHeld]byte{
	heldUp:     'w',
	heldLeft:   'a',
	heldDown:   's',
	heldRight:  'd',
	held70:     '7',
	held80:     '8',
	held100:    '0',
	heldReport: 'e',
}

// Keymap tracks which controls are held and turns them into one command
// byte. D-pad and left stick steer; Square, Triangle and Circle pick
// 70/80/100%; Cross asks for the distance.
type Keymap struct {
	held [numHeld]bool
}

func (k *Keymap) Apply(e *Event) {
	switch e.Type {
	case EventTypeAxis:
		switch e.Number {
		case AxisDPadY, AxisLStickY:
			k.held[heldUp] = e.Value < -AxisThreshold
			k.held[heldDown] = e.Value > AxisThreshold
		case AxisDPadX, AxisLStickX:
			k.held[heldLeft] = e.Value < -AxisThreshold
			k.held[heldRight] = e.Value > AxisThreshold
		}
	case EventTypeButton:
		pressed := e.Value == 1
		switch e.Number {
		case ButtonSquare:
			k.held[held70] = pressed
		case ButtonTriangle:
			k.held[held80] = pressed
		case ButtonCircle:
			k.held[held100] = pressed
		case ButtonCross:
			k.held[heldReport] = pressed
		}
	}
}

// Command returns the byte for the highest-priority held control.
func (k *Keymap) Command() byte {
	for i, h := range k.held {
		if h {
			return priority[i]
		}
	}
	return IdleCommand
}

// Repeat calls send with the current command every interval until ctx is
// done or the event stream ends.
func Repeat(ctx context.Context, j *Joystick, interval time.Duration, send func(byte) error) error {
	events := make(chan *Event)
	errs := make(chan error, 1)
	go func() {
		for {
			e, err := j.ReadEvent()
			if err != nil {
				errs <- err
				return
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	var keys Keymap
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			return err
		case e := <-events:
			log.Debug().Stringer("event", e).Msg("Joystick event")
			keys.Apply(e)
		case <-ticker.C:
			if err := send(keys.Command()); err != nil {
				return err
			}
		}
	}
}
