//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Host HostConfig
	// Duration stops the machine after this much wall time; 0 runs until
	// the context is canceled.
	Duration time.Duration
}

// RunHeadless boots the system without opening a window. boot is built
// from the HAL by newApp and blocks until the machine halts.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	h := NewHost(cfg.Host)
	boot := newApp(h)
	if boot == nil {
		return errors.New("headless: nothing to run")
	}
	defer h.serial.Close()

	done := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		return boot()
	})
	g.Go(func() error {
		var timeout <-chan time.Time
		if cfg.Duration > 0 {
			t := time.NewTimer(cfg.Duration)
			defer t.Stop()
			timeout = t.C
		}
		select {
		case <-ctx.Done():
		case <-timeout:
		case <-done:
		}
		h.m.Halt()
		return nil
	})
	return g.Wait()
}
