package controller

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ivlev/simslides/internal/director"
)

// Run is the headless render loop. Every tickRate it applies reloaded
// stores, the pending update and then calls step, until ctx is done.
// step may be nil.
func (c *Controller) Run(ctx context.Context, clk clock.Clock, tickRate time.Duration, step func() bool, reloads <-chan *director.Store) error {
	if clk == nil {
		clk = clock.New()
	}
	ticker := clk.Ticker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return nil
		case store := <-reloads:
			if err := c.Replace(store); err != nil {
				c.logger.Errorw("reload failed", "error", err)
				continue
			}
			c.logger.Infow("presentation reloaded", "keyframes", store.Count())
		case <-ticker.C:
			c.Tick()
			if step != nil {
				step()
			}
		}
	}
}
