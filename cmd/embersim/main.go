//go:build !tinygo

// Command embersim runs an ember system on a manual clock for a fixed
// amount of simulated time and prints the final kernel snapshot as JSON.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"ember/app"
	"ember/hal"
	"ember/kernel"

	"github.com/sugawarayuuta/sonnet"
)

type options struct {
	run     time.Duration
	step    time.Duration
	press   time.Duration
	sched   string
	slice   time.Duration
	threads int
	log     io.Writer
}

func main() {
	var (
		opts    options
		verbose = flag.Bool("v", false, "Print the kernel log on stderr.")
	)
	flag.DurationVar(&opts.run, "run", time.Second, "Simulated time to run.")
	flag.DurationVar(&opts.step, "step", 10*time.Millisecond, "Clock advance per step.")
	flag.DurationVar(&opts.press, "press", 0, "Press button SW1 at this interval (0 = never).")
	flag.StringVar(&opts.sched, "sched", string(kernel.SchedPriority), "Scheduler: priority or roundrobin.")
	flag.DurationVar(&opts.slice, "slice", 0, "Time slice (default from the kernel configuration).")
	flag.IntVar(&opts.threads, "threads", 0, "Thread pool size (0 = default).")
	flag.Parse()

	opts.log = io.Discard
	if *verbose {
		opts.log = os.Stderr
	}
	if err := run(os.Stdout, opts); err != nil {
		fatalf("embersim: %v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func run(w io.Writer, opts options) error {
	if opts.step <= 0 {
		return fmt.Errorf("step must be positive, got %v", opts.step)
	}

	cfg := app.DefaultConfig()
	cfg.Shell = false
	cfg.Kernel.Scheduler = kernel.SchedulerKind(opts.sched)
	cfg.Slice = opts.slice
	if opts.threads > 0 {
		cfg.Kernel.MaxThreads = opts.threads
	}

	h := hal.NewHost(hal.HostConfig{
		Machine:      hal.GoMachineConfig{ManualClock: true},
		Buttons:      1,
		LogOutput:    opts.log,
		SerialOutput: io.Discard,
	})
	sys, err := app.NewSystem(h, cfg)
	if err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- sys.Boot() }()

	core := h.Core()
	core.Settle()
	var now, lastPress time.Duration
	for now < opts.run {
		step := min(opts.step, opts.run-now)
		core.Advance(step)
		now += step
		if opts.press > 0 && now-lastPress >= opts.press {
			lastPress = now
			h.Button(0).Press()
			h.Button(0).Release()
			core.Settle()
		}
	}
	core.Halt()
	if err := <-done; err != nil {
		return err
	}

	b, err := sonnet.Marshal(sys.Kernel().Snapshot())
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
