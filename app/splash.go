package app

import (
	"fmt"
	"image/color"
	"time"

	"ember/hal"
	"ember/internal/buildinfo"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

// splash clears the screen and shows the build and kernel configuration
// until the status and console threads take over.
func splash(fb hal.Framebuffer, cfg Config) {
	fb.ClearRGB(0, 0, 0)
	d := hal.NewLCD(fb, statusArea)
	font := &proggy.TinySZ8pt7b
	fg := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	tinyfont.WriteLine(d, font, 2, 12, "Ember "+buildinfo.Short(), fg)
	tinyfont.WriteLine(d, font, 2, 28, fmt.Sprintf("%s scheduler, %d threads, slice %v",
		cfg.Kernel.Scheduler, cfg.Kernel.MaxThreads, sliceOf(cfg)), fg)
	_ = fb.Present()
}

func sliceOf(cfg Config) time.Duration {
	if cfg.Slice != 0 {
		return cfg.Slice
	}
	return cfg.Kernel.TimeSlice
}
