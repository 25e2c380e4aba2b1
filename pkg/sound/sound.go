package sound

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog/log"
)

// Player plays WAV files one at a time on a background goroutine. A new
// sound cuts off the one playing.
type Player struct {
	requests chan string
	dropped  atomic.Uint32
}

func NewPlayer() *Player {
	p := &Player{
		requests: make(chan string, 1),
	}
	go p.loop()
	return p
}

// Play queues a sound. It never blocks: if a request is already waiting the
// new one is dropped.
func (p *Player) Play(path string) (queued bool) {
	defer func() {
		if recover() != nil { // Don't die if the player is already closed.
			queued = false
		}
	}()
	select {
	case p.requests <- path:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of requests lost because the player was busy.
func (p *Player) Dropped() uint32 {
	return p.dropped.Load()
}

func (p *Player) Close() {
	close(p.requests)
}

func (p *Player) loop() {
	sampleRate := beep.SampleRate(44100)
	err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
	if err != nil {
		log.Error().Err(err).Msg("Failed to open speaker")
		for s := range p.requests {
			log.Warn().Str("sound", s).Msg("Unable to play")
		}
		return
	}
	var ctrl *beep.Ctrl
	var s beep.StreamSeekCloser
	for soundToPlay := range p.requests {
		if ctrl != nil {
			speaker.Lock()
			ctrl.Paused = true
			ctrl.Streamer = nil
			speaker.Unlock()
			ctrl = nil
		}
		if s != nil {
			s.Close()
			s = nil
		}

		f, err := os.Open(soundToPlay)
		if err != nil {
			log.Error().Err(err).Str("sound", soundToPlay).Msg("Failed to open sound")
			continue
		}
		s, _, err = wav.Decode(f)
		if err != nil {
			log.Error().Err(err).Str("sound", soundToPlay).Msg("Failed to decode sound")
			f.Close()
			s = nil
			continue
		}
		ctrl = &beep.Ctrl{Streamer: s}
		speaker.Play(ctrl)
	}
}
