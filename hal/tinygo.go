//go:build tinygo && baremetal

package hal

import (
	"machine"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	gpio   GPIO
	fb     Framebuffer
	serial *uartSerial
	m      *GoMachine
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1.
// Button: GP15 to ground, falling-edge interrupt.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	m := NewGoMachine(GoMachineConfig{CyclesPerSecond: 150_000_000})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	led := &pinLED{pin: ledPin}

	sw := &pinButton{name: "SW1", pin: machine.GP15, m: m}
	sw.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    led,
		gpio:   newVirtualGPIO([]GPIOPin{newLEDPin("LED", led), sw}),
		fb:     &stubFramebuffer{w: 320, h: 240, format: PixelFormatRGB565},
		serial: &uartSerial{uart: uart, m: m},
		m:      m,
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) GPIO() GPIO       { return h.gpio }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Machine() Machine { return h.m }
