// Package probe tracks whether the primary store is reachable.
//
// A Probe pings the primary on a fixed interval and publishes the result
// through Available. When the primary comes back after being unreachable
// (including the very first successful check), the recovery hook runs in its
// own goroutine so the ticker is never blocked by a reconciliation sweep.
package probe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// Status answers whether the primary can be used right now.
type Status interface {
	Available() bool
}

// AlwaysOnline reports the primary as reachable without probing.
type AlwaysOnline struct{}

func (AlwaysOnline) Available() bool { return true }

// Pinger is the thing being probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Probe struct {
	target    Pinger
	interval  time.Duration
	log       logging.Logger
	onRecover func(ctx context.Context)

	up       atomic.Bool
	checking sync.Mutex
	wg       sync.WaitGroup
}

func New(target Pinger, interval time.Duration, log logging.Logger) *Probe {
	return &Probe{
		target:   target,
		interval: interval,
		log:      log.With("module", "probe"),
	}
}

// OnRecover sets the hook run on every unreachable-to-reachable transition.
// It must be called before Run.
func (p *Probe) OnRecover(fn func(ctx context.Context)) {
	p.onRecover = fn
}

// Available reports the result of the latest check.
func (p *Probe) Available() bool {
	return p.up.Load()
}

// Check pings the target once and updates the status.
func (p *Probe) Check(ctx context.Context) bool {
	p.checking.Lock()
	defer p.checking.Unlock()

	err := p.target.Ping(ctx)
	up := err == nil
	was := p.up.Swap(up)

	switch {
	case up && !was:
		p.log.Info(ctx, "primary store reachable")
		p.recovered(ctx)
	case !up && was:
		p.log.Warn(ctx, "primary store unreachable", "error", err)
	case !up:
		p.log.Debug(ctx, "primary store still unreachable", "error", err)
	}
	return up
}

func (p *Probe) recovered(ctx context.Context) {
	if p.onRecover == nil {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.log.Error(ctx, "recovery hook panicked", "panic", r)
			}
		}()
		p.onRecover(ctx)
	}()
}

// Run checks immediately and then every interval until ctx is done. A panic
// inside a check is logged and the loop restarts after one interval. Run
// waits for in-flight recovery hooks before returning.
func (p *Probe) Run(ctx context.Context) {
	defer p.wg.Wait()

	for {
		err := p.loop(ctx)
		if err == nil {
			return
		}
		p.log.Error(ctx, "probe loop crashed, restarting", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
}

func (p *Probe) loop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}
