package monitor

import (
	"fmt"
	"image/color"
	"time"

	"ember/hal"
	"ember/internal/buildinfo"
	"ember/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	statusLineHeight = 10
	statusOffset     = 8
)

// Status draws a summary of the kernel counters on an LCD area.
type Status struct {
	k    *kernel.Kernel
	d    *hal.LCD
	font tinyfont.Fonter

	fg, bg color.RGBA

	// Interval is the redraw period in milliseconds.
	Interval uint32

	last     kernel.Snapshot
	lastTime uint32
}

// NewStatus returns a status screen drawing on d once a second.
func NewStatus(k *kernel.Kernel, d *hal.LCD) *Status {
	return &Status{
		k:        k,
		d:        d,
		font:     &proggy.TinySZ8pt7b,
		fg:       color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff},
		bg:       color.RGBA{R: 0x10, G: 0x20, B: 0x40, A: 0xff},
		Interval: 1000,
	}
}

// Run is the body of the status thread.
func (s *Status) Run() {
	for {
		_ = s.Draw()
		s.k.Sleep(s.Interval)
	}
}

// Draw renders one frame.
func (s *Status) Draw() error {
	snap := s.k.Snapshot()
	lines := s.Lines(snap)
	s.last, s.lastTime = snap, snap.MsTime

	w, h := s.d.Size()
	if err := s.d.FillRectangle(0, 0, w, h, s.bg); err != nil {
		return err
	}
	for i, line := range lines {
		y := int16(i*statusLineHeight + statusOffset)
		if y > h {
			break
		}
		tinyfont.WriteLine(s.d, s.font, 2, y, line, s.fg)
	}
	return s.d.Display()
}

// Lines formats snap for display. Rates are computed against the previous
// frame.
func (s *Status) Lines(snap kernel.Snapshot) []string {
	live, bg := 0, 0
	for _, t := range snap.Threads {
		if t.Background {
			bg++
		} else {
			live++
		}
	}
	up := time.Duration(snap.MsTime) * time.Millisecond

	rate := uint32(0)
	if dt := snap.MsTime - s.lastTime; dt > 0 && snap.Switches >= s.last.Switches {
		rate = (snap.Switches - s.last.Switches) * 1000 / dt
	}

	lines := []string{
		fmt.Sprintf("ember %s  %s  up %v", buildinfo.Short(), snap.Scheduler, up.Truncate(100*time.Millisecond)),
		fmt.Sprintf("threads %d  bg %d  ready %d  free %d", live, bg, snap.Ready, snap.FreeThreads),
		fmt.Sprintf("switches %d (%d/s)  ticks %d", snap.Switches, rate, snap.Ticks),
		fmt.Sprintf("blocks %d  dropped %d  masked max %v", snap.Blocks, snap.Dropped, snap.MaskedMax),
	}
	for _, task := range snap.Tasks {
		if task.Kind == "periodic" {
			lines = append(lines, fmt.Sprintf("%s: %d runs  jitter max %v", task.Name, task.Runs, task.MaxJitter))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %d edges", task.Name, task.Runs))
		}
	}
	return lines
}
