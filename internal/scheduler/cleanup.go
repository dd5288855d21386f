package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// cycleTimeout bounds a single reclamation pass so a stuck database call
// cannot wedge the loop forever.
const cycleTimeout = 10 * time.Minute

// Reclaimer removes expired reports and returns how many were deleted.
type Reclaimer interface {
	Reclaim(ctx context.Context, now time.Time) (int, error)
}

// Cleanup periodically invokes the retention policy's Reclaim. Cycles never
// overlap: a tick that arrives while the previous cycle is still running is
// skipped (duplicate reclaims are idempotent but wasteful). A failed cycle is
// logged and the next tick proceeds normally; there is no catch-up for missed
// ticks.
type Cleanup struct {
	reclaimer Reclaimer
	interval  time.Duration
	running   sync.Mutex
	reclaimed prometheus.Counter
}

// NewCleanup creates a Cleanup ticking at the given interval. The reclaimed
// counter is registered on reg; pass nil to skip metrics (tests).
func NewCleanup(r Reclaimer, interval time.Duration, reg prometheus.Registerer) *Cleanup {
	c := &Cleanup{
		reclaimer: r,
		interval:  interval,
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reports_reclaimed_total",
			Help: "Total number of expired reports removed by the cleanup scheduler.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.reclaimed)
	}
	return c
}

// Run blocks until ctx is cancelled. One pass runs immediately at startup so a
// restarted process does not wait a full interval before reclaiming.
func (c *Cleanup) Run(ctx context.Context) {
	c.tick(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick starts one reclamation cycle unless the previous one is still running.
func (c *Cleanup) tick(ctx context.Context) {
	if !c.running.TryLock() {
		logJSON(map[string]any{
			"level":     "warn",
			"component": "scheduler",
			"event":     "cleanup_tick_skipped",
			"msg":       "previous reclamation cycle still running",
		})
		return
	}
	go func() {
		defer c.running.Unlock()
		c.runCycle(ctx)
	}()
}

func (c *Cleanup) runCycle(ctx context.Context) {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	count, err := c.reclaimer.Reclaim(cctx, start)
	if err != nil {
		logJSON(map[string]any{
			"level":         "error",
			"component":     "scheduler",
			"event":         "cleanup_cycle_failed",
			"error_message": err.Error(),
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return
	}

	c.reclaimed.Add(float64(count))
	logJSON(map[string]any{
		"level":         "info",
		"component":     "scheduler",
		"event":         "cleanup_cycle_done",
		"deleted_count": count,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal scheduler log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
