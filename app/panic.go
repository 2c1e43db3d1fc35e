package app

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode/utf8"

	"ember/hal"
	"ember/kernel"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	fatalLineHeight = 10
	fatalFontOffset = 8
)

// installFatalHandler reports kernel faults on the log and paints them
// over the whole screen.
func installFatalHandler(h hal.HAL, k *kernel.Kernel) {
	k.SetFatalHandler(func(info kernel.FatalInfo) {
		lines := fatalLines(info)
		if l := h.Logger(); l != nil {
			for _, line := range lines {
				l.WriteLineString(line)
			}
		}

		disp := h.Display()
		if disp == nil {
			return
		}
		fb := disp.Framebuffer()
		if fb == nil {
			return
		}
		drawFatal(fb, lines)
	})
}

func fatalLines(info kernel.FatalInfo) []string {
	lines := []string{
		"Ember fatal:",
		fmt.Sprintf("thread: %d %s", info.Thread, info.Name),
		fmt.Sprintf("error: %v", info.Err),
	}
	if len(info.Stack) == 0 {
		return append(lines, "stack: unavailable")
	}
	lines = append(lines, "stack:")
	for _, line := range strings.Split(string(info.Stack), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func drawFatal(fb hal.Framebuffer, lines []string) {
	fb.ClearRGB(255, 255, 255)
	d := hal.NewLCD(fb, image.Rectangle{})

	font := &proggy.TinySZ8pt7b
	_, outbox := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outbox)
	if fontWidth <= 0 {
		_ = fb.Present()
		return
	}
	fg := color.RGBA{A: 255}

	w, h := d.Size()
	cols := w / fontWidth
	if cols <= 0 {
		cols = 1
	}
	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if y+fatalLineHeight > h {
				_ = fb.Present()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(d, font, fontWidth, 0, y, chunk, fg)
			y += fatalLineHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = fb.Present()
}

// drawTextLine places runes on a fixed grid so columns line up in stack
// traces.
func drawTextLine(d *hal.LCD, font tinyfont.Fonter, fontWidth, x0, y0 int16, s string, fg color.RGBA) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(d, font, x, y0+fatalFontOffset, r, fg)
		x += fontWidth
	}
}

// takeRunes splits s after at most n runes.
func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
