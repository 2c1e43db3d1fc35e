//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// pollKeys feeds window keyboard input to the simulated UART and maps F1..F4
// to the virtual push buttons.
func (h *Host) pollKeys() {
	var rx []byte
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl {
		emitCtrl := func(key ebiten.Key, b byte) {
			if inpututil.IsKeyJustPressed(key) {
				rx = append(rx, b)
			}
		}
		emitCtrl(ebiten.KeyC, 0x03)
		emitCtrl(ebiten.KeyU, 0x15)
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x80 {
			rx = append(rx, byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		rx = append(rx, '\n')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		rx = append(rx, 0x08)
	}
	if len(rx) > 0 {
		h.serial.Inject(rx)
	}

	keys := []ebiten.Key{ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4}
	for i, b := range h.buttons {
		if i >= len(keys) {
			break
		}
		if inpututil.IsKeyJustPressed(keys[i]) {
			b.Press()
		}
		if inpututil.IsKeyJustReleased(keys[i]) {
			b.Release()
		}
	}
}
