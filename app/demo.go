package app

import (
	"fmt"
	"time"

	"ember/hal"
	"ember/kernel"
)

const (
	samplePeriod = 10 * time.Millisecond
	pingInterval = 50 // ms
	blinkCount   = 3
)

// Demo is a workload that keeps every kernel service busy: a periodic
// sampler feeding a consumer through a FIFO, a mailbox ping/pong pair,
// button edge tasks driving the LED and a short-lived process.
type Demo struct {
	k   *kernel.Kernel
	led hal.LED

	samples *kernel.Fifo
	mb      *kernel.Mailbox
	pressed *kernel.Semaphore

	sampled  uint32
	consumed uint32
	interval time.Duration
	last     uint32
	pings    uint32
	pongs    uint32
	presses  uint32
	ledOn    bool
	blinks   uint32
	spins    uint32
}

// DemoCounts is a snapshot of the demo's progress.
type DemoCounts struct {
	Sampled  uint32
	Consumed uint32
	// Interval is the last measured time between two samples.
	Interval time.Duration
	Pongs    uint32
	Presses  uint32
	LEDOn    bool
	Blinks   uint32
	Spins    uint32
}

func newDemo(h hal.HAL, k *kernel.Kernel, load bool) (*Demo, error) {
	d := &Demo{
		k:       k,
		led:     h.LED(),
		samples: k.NewFifo(16),
		mb:      k.NewMailbox(),
		pressed: k.NewSemaphore(0),
	}
	top := k.Config().MaxPriority

	if err := k.AddPeriodicTask("sampler", d.sample, samplePeriod, 0); err != nil {
		return nil, err
	}
	threads := []struct {
		name     string
		fn       func()
		priority int
	}{
		{"consumer", d.consume, min(1, top)},
		{"ping", d.ping, min(3, top)},
		{"pong", d.pong, min(3, top)},
		{"led", d.blinkOnPress, min(1, top)},
	}
	if load {
		threads = append(threads, struct {
			name     string
			fn       func()
			priority int
		}{"load", d.spin, top})
	}
	for _, t := range threads {
		if _, err := k.AddThread(t.name, t.fn, 0, t.priority); err != nil {
			return nil, fmt.Errorf("%s: %w", t.name, err)
		}
	}

	if g := h.GPIO(); g != nil {
		for i := 0; i < g.PinCount(); i++ {
			src, ok := g.Pin(i).(hal.EdgeSource)
			if !ok {
				continue
			}
			name := g.Pin(i).Name()
			if err := k.AddEdgeTask(name, src, d.press, 0); err != nil {
				return nil, fmt.Errorf("button %s: %w", name, err)
			}
		}
	}

	if _, err := k.AddProcess("blink", d.blinkProcess, []byte("blink"), []byte{blinkCount}, 0, min(2, top)); err != nil {
		return nil, err
	}
	return d, nil
}

// Counts returns the demo counters with interrupts masked.
func (d *Demo) Counts() DemoCounts {
	s := d.k.StartCritical()
	defer d.k.EndCritical(s)
	return DemoCounts{
		Sampled:  d.sampled,
		Consumed: d.consumed,
		Interval: d.interval,
		Pongs:    d.pongs,
		Presses:  d.presses,
		LEDOn:    d.ledOn,
		Blinks:   d.blinks,
		Spins:    d.spins,
	}
}

// sample is the periodic background task.
func (d *Demo) sample() {
	d.sampled++
	d.samples.Put(d.k.Time())
}

func (d *Demo) consume() {
	for {
		v := d.samples.Get()
		s := d.k.StartCritical()
		if d.consumed > 0 {
			d.interval = d.k.Elapsed(kernel.TimeDifference(d.last, v))
		}
		d.last = v
		d.consumed++
		d.k.EndCritical(s)
	}
}

func (d *Demo) ping() {
	for {
		d.mb.Send(d.pings)
		d.pings++
		d.k.Sleep(pingInterval)
	}
}

func (d *Demo) pong() {
	for {
		v := d.mb.Recv()
		s := d.k.StartCritical()
		if v == d.pongs {
			d.pongs++
		}
		d.k.EndCritical(s)
	}
}

// press runs as a background thread on a button edge.
func (d *Demo) press() {
	d.presses++
	d.pressed.BSignal()
}

func (d *Demo) blinkOnPress() {
	for {
		d.pressed.BWait()
		d.ledOn = !d.ledOn
		if d.led == nil {
			continue
		}
		if d.ledOn {
			d.led.High()
		} else {
			d.led.Low()
		}
	}
}

// blinkProcess counts down the first byte of its data image through its
// private heap, then exits and releases the process.
func (d *Demo) blinkProcess() {
	heap := d.k.ProcessHeap()
	id, _ := d.k.CurrentProcess()
	var n uint32 = blinkCount
	d.k.Processes(func(p *kernel.Process) {
		if p.ID() == id && len(p.Data()) > 0 {
			n = uint32(p.Data()[0])
		}
	})
	heap[0] = n
	for heap[0] > 0 {
		d.k.Sleep(100)
		heap[0]--
		d.blinks++
	}
}

// spin never blocks, so it only runs while every other thread waits.
func (d *Demo) spin() {
	for {
		for i := 0; i < 1000; i++ {
			d.spins++
		}
		d.k.Suspend()
	}
}
