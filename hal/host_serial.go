//go:build !tinygo

package hal

import (
	"bytes"
	"errors"
	"io"
	"sync"

	tty "github.com/mattn/go-tty"
)

// hostSerial writes to its output (stdout by default) and, when a console is requested, reads
// the controlling terminal in raw mode. Every byte received raises an
// interrupt on the simulated core.
type hostSerial struct {
	mu      sync.Mutex
	w       io.Writer
	m       *GoMachine
	console bool
	log     *hostLogger

	rx      func(b byte)
	tty     *tty.TTY
	restore func() error
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tty != nil {
		n := len(p)
		_, err := s.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte("\r\n")))
		return n, err
	}
	return s.w.Write(p)
}

func (s *hostSerial) OnReceive(fn func(b byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rx = fn
	if !s.console || s.tty != nil {
		return nil
	}
	t, err := tty.Open()
	if err != nil {
		return err
	}
	restore, err := t.Raw()
	if err != nil {
		t.Close()
		return err
	}
	s.tty = t
	s.restore = restore
	if s.log != nil {
		s.log.setRaw(true)
	}
	go s.readLoop(t)
	return nil
}

func (s *hostSerial) readLoop(t *tty.TTY) {
	buf := make([]byte, 64)
	for {
		n, err := t.Input().Read(buf)
		if err != nil {
			return
		}
		s.Inject(buf[:n])
	}
}

// Inject delivers bytes as if they arrived on the wire.
func (s *hostSerial) Inject(p []byte) {
	s.mu.Lock()
	fn := s.rx
	s.mu.Unlock()
	if fn == nil {
		return
	}
	for _, b := range p {
		b := b
		if b == '\r' {
			b = '\n'
		}
		s.m.Raise(func() { fn(b) })
	}
}

// Close puts the terminal back into cooked mode.
func (s *hostSerial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tty == nil {
		return nil
	}
	var errs []error
	if s.restore != nil {
		errs = append(errs, s.restore())
	}
	errs = append(errs, s.tty.Close())
	s.tty = nil
	if s.log != nil {
		s.log.setRaw(false)
	}
	return errors.Join(errs...)
}
