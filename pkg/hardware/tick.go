package hardware

import (
	"context"
	"time"

	"github.com/tigerbot-team/sonarbot/pkg/irq"
)

// RunTicker raises an irq.Timer request every period until ctx is done.
// Ticks the dispatcher cannot keep up with are dropped by the controller.
func RunTicker(ctx context.Context, period time.Duration, irqs *irq.Controller) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			irqs.Raise(irq.Timer, 0)
		}
	}
}
