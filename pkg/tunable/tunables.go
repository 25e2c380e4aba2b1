package tunable

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Tunable is an integer calibration value that may be adjusted while the
// firmware runs. Reads and writes are atomic.
type Tunable struct {
	Name     string
	Min, Max int

	value atomic.Int64
}

func (t *Tunable) Get() int {
	return int(t.value.Load())
}

// Set stores v clamped to [Min, Max] and returns the stored value.
func (t *Tunable) Set(v int) int {
	v = t.clamp(v)
	t.value.Store(int64(v))
	log.Info().Str("tunable", t.Name).Int("value", v).Msg("Tunable set")
	return v
}

// Add adjusts the value by delta, clamped to [Min, Max].
func (t *Tunable) Add(delta int) int {
	for {
		old := t.value.Load()
		v := int64(t.clamp(int(old) + delta))
		if t.value.CompareAndSwap(old, v) {
			log.Info().Str("tunable", t.Name).Int64("value", v).Msg("Tunable adjusted")
			return int(v)
		}
	}
}

func (t *Tunable) clamp(v int) int {
	if v < t.Min {
		return t.Min
	}
	if v > t.Max {
		return t.Max
	}
	return v
}

type Tunables struct {
	All []*Tunable
}

func (t *Tunables) Create(name string, value, min, max int) *Tunable {
	newTunable := &Tunable{
		Name: name,
		Min:  min,
		Max:  max,
	}
	newTunable.value.Store(int64(newTunable.clamp(value)))
	t.All = append(t.All, newTunable)
	return newTunable
}

// Find returns the tunable with the given name, or nil.
func (t *Tunables) Find(name string) *Tunable {
	for _, tu := range t.All {
		if tu.Name == name {
			return tu
		}
	}
	return nil
}
