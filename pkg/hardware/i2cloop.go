package hardware

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tigerbot-team/sonarbot/pkg/pca9685"
)

var pwmRetryDelay = time.Second

// PWMController owns the I2C bus to the motor PWM chip. SetDuty only records
// the desired value; the loop goroutine does the (slow) bus writes, so it is
// safe to call from interrupt or main-loop context.
type PWMController struct {
	lock sync.Mutex

	// Desired values.  Stored off in case we need to re-initialise the hardware.
	duty  [NumWheels]int
	dirty bool

	device   string
	channels [NumWheels]int
	open     func(device string) (pca9685.Interface, error)
	wake     chan struct{}

	failures atomic.Uint32
}

func NewPWMController(device string, channels []int) *PWMController {
	c := &PWMController{
		device: device,
		open:   pca9685.New,
		wake:   make(chan struct{}, 1),
	}
	copy(c.channels[:], channels)
	return c
}

func (c *PWMController) SetDuty(w Wheel, percent int) error {
	c.lock.Lock()
	c.duty[w] = percent
	c.dirty = true
	c.lock.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Failures returns how many times the bus had to be re-initialised.
func (c *PWMController) Failures() uint32 {
	return c.failures.Load()
}

func (c *PWMController) Loop(ctx context.Context, initDone *sync.WaitGroup) {
	log.Info().Str("device", c.device).Msg("PWM loop started")
	for {
		c.loopUntilSomethingBadHappens(ctx, initDone)
		if ctx.Err() != nil {
			return
		}
		c.failures.Add(1)
		log.Warn().Msg("===== !!! WARNING !!! PWM FAILURE; TRYING TO RECOVER =====")
		initDone = nil
		select {
		case <-ctx.Done():
			return
		case <-time.After(pwmRetryDelay):
		}
	}
}

func (c *PWMController) loopUntilSomethingBadHappens(ctx context.Context, initDone *sync.WaitGroup) {
	defer func() {
		if initDone != nil {
			initDone.Done()
		}
	}()

	pwm, err := c.open(c.device)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open PWM chip")
		return
	}
	defer pwm.Close()

	if err := pwm.Configure(pca9685.MotorPrescale); err != nil {
		log.Error().Err(err).Msg("Failed to configure PWM chip")
		return
	}
	log.Info().Int("hz", pca9685.FrequencyHz(pca9685.MotorPrescale)).Msg("PWM chip configured")

	// The chip has just been reset; everything needs writing again.
	c.lock.Lock()
	c.dirty = true
	c.lock.Unlock()

	if initDone != nil {
		initDone.Done()
		initDone = nil
	}

	for {
		c.lock.Lock()
		duty, dirty := c.duty, c.dirty
		c.dirty = false
		c.lock.Unlock()

		if dirty {
			for w, percent := range duty {
				if err := pwm.SetDuty(c.channels[w], percent); err != nil {
					log.Error().Err(err).Stringer("wheel", Wheel(w)).Msg("Failed to update duty")
					c.lock.Lock()
					c.dirty = true
					c.lock.Unlock()
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}
	}
}
