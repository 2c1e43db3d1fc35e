package monitor

import (
	"image/color"

	"ember/hal"
	"ember/kernel"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

const consoleLines = 32

// Console is a log sink that renders lines on an LCD area through a
// terminal. Lines are queued from any context with interrupts masked and
// drawn by the console thread. The LCD has no hardware scroll, so the
// terminal wraps to the top of the area once it is full.
type Console struct {
	m    hal.Machine
	d    *hal.LCD
	term *tinyterm.Terminal

	queue   [consoleLines]string
	head    uint32
	tail    uint32
	dropped uint32
}

var _ hal.Logger = (*Console)(nil)

// NewConsole returns a console drawing on d.
func NewConsole(m hal.Machine, d *hal.LCD) *Console {
	c := &Console{m: m, d: d}
	c.term = tinyterm.NewTerminal(d)
	c.term.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: 10,
		FontOffset: 6,
	})
	w, h := d.Size()
	_ = d.FillRectangle(0, 0, w, h, color.RGBA{A: 0xff})
	return c
}

func (c *Console) WriteLineString(s string) {
	st := c.m.DisableInterrupts()
	if c.head-c.tail >= consoleLines {
		c.tail++
		c.dropped++
	}
	c.queue[c.head%consoleLines] = s
	c.head++
	c.m.RestoreInterrupts(st)
}

func (c *Console) WriteLineBytes(b []byte) { c.WriteLineString(string(b)) }

// Flush draws every queued line and returns how many were drawn.
func (c *Console) Flush() int {
	var lines []string
	st := c.m.DisableInterrupts()
	for c.tail != c.head {
		lines = append(lines, c.queue[c.tail%consoleLines])
		c.queue[c.tail%consoleLines] = ""
		c.tail++
	}
	c.m.RestoreInterrupts(st)

	for _, l := range lines {
		_, _ = c.term.Write([]byte(l + "\n"))
	}
	if len(lines) > 0 {
		_ = c.d.Display()
	}
	return len(lines)
}

// Dropped returns the number of lines overwritten before they were drawn.
func (c *Console) Dropped() uint32 {
	st := c.m.DisableInterrupts()
	n := c.dropped
	c.m.RestoreInterrupts(st)
	return n
}

// Loop flushes the console every interval milliseconds. It is the body of
// the console thread.
func (c *Console) Loop(k *kernel.Kernel, interval uint32) {
	for {
		c.Flush()
		k.Sleep(interval)
	}
}
