//go:build !tinygo && cgo

package hal

import (
	"errors"
	"image"

	"ember/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts a desktop window that displays the LCD framebuffer and
// forwards keyboard input to the serial port and buttons. The system built
// by newApp boots on its own goroutine. RunWindow blocks until the window
// closes or the machine halts.
func RunWindow(newApp func(HAL) func() error, cfg HostConfig) error {
	cfg.Console = false
	h := NewHost(cfg)
	boot := newApp(h)
	if boot == nil {
		return errors.New("window: nothing to run")
	}

	g := &hostGame{h: h, done: make(chan struct{})}
	go func() {
		g.err = boot()
		close(g.done)
	}()

	ebiten.SetWindowTitle("Ember (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	err := ebiten.RunGame(g)
	h.m.Halt()
	<-g.done
	if errors.Is(err, ebiten.Termination) {
		err = nil
	}
	if err == nil {
		err = g.err
	}
	return err
}

type hostGame struct {
	h       *Host
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	done    chan struct{}
	err     error
}

func (g *hostGame) Update() error {
	select {
	case <-g.done:
		return ebiten.Termination
	default:
	}
	g.h.pollKeys()
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)

	src := g.scratch
	dst := g.img.Pix
	for i := 0; i+1 < len(src) && i/2*4+3 < len(dst); i += 2 {
		r, gg, b := rgb888From565(uint16(src[i]) | uint16(src[i+1])<<8)
		j := (i / 2) * 4
		dst[j+0] = r
		dst[j+1] = gg
		dst[j+2] = b
		dst[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
