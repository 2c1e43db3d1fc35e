//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"ember/app"
	"ember/hal"
	"ember/internal/buildinfo"
	"ember/kernel"
)

func main() {
	cfg := app.DefaultConfig()
	var (
		headless bool
		duration time.Duration
		buttons  int
		sched    string
		version  bool
	)
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.DurationVar(&duration, "duration", 0, "Stop after this long in headless mode (0 = run until interrupted).")
	flag.DurationVar(&cfg.Slice, "slice", 0, "Time slice (default from the kernel configuration).")
	flag.StringVar(&sched, "sched", string(cfg.Kernel.Scheduler), "Scheduler: priority or roundrobin.")
	flag.IntVar(&cfg.Kernel.MaxThreads, "threads", cfg.Kernel.MaxThreads, "Thread pool size.")
	flag.IntVar(&buttons, "buttons", 2, "Number of virtual push buttons.")
	flag.BoolVar(&cfg.Demo, "demo", cfg.Demo, "Run the demo workload.")
	flag.BoolVar(&cfg.Load, "load", cfg.Load, "Add a CPU-bound thread at the lowest priority.")
	flag.BoolVar(&cfg.Console, "console", cfg.Console, "Mirror the kernel log on the LCD.")
	flag.BoolVar(&version, "version", false, "Print the version and exit.")
	flag.Parse()

	if version {
		fmt.Println("ember " + buildinfo.String())
		return
	}
	cfg.Kernel.Scheduler = kernel.SchedulerKind(sched)

	newApp := func(h hal.HAL) func() error { return app.NewWithConfig(h, cfg) }
	host := hal.HostConfig{Buttons: buttons, Console: true}

	if headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{Host: host, Duration: duration})
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(newApp, host); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
