//go:build !tinygo

package main

import (
	"bytes"
	"io"
	"testing"
	"time"

	"ember/kernel"

	"github.com/sugawarayuuta/sonnet"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	opts := options{
		run:   200 * time.Millisecond,
		step:  20 * time.Millisecond,
		press: 100 * time.Millisecond,
		sched: string(kernel.SchedRoundRobin),
		log:   io.Discard,
	}
	if err := run(&out, opts); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	var snap kernel.Snapshot
	if err := sonnet.Unmarshal(out.Bytes(), &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v\n%s", err, out.String())
	}
	if snap.Scheduler != kernel.SchedRoundRobin {
		t.Fatalf("Scheduler = %q, want %q", snap.Scheduler, kernel.SchedRoundRobin)
	}
	if snap.MsTime != 200 {
		t.Fatalf("MsTime = %d, want 200", snap.MsTime)
	}
	// 20 samples plus two button presses.
	if snap.BackgroundDone != 22 {
		t.Fatalf("BackgroundDone = %d, want 22", snap.BackgroundDone)
	}
}

func TestRunRejectsBadStep(t *testing.T) {
	if err := run(io.Discard, options{run: time.Second, log: io.Discard}); err == nil {
		t.Fatal("run() error = nil, want error")
	}
}
