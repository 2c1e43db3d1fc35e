// Package monitor is the operator's view of a running kernel: a command
// shell on the serial port, a status screen and a log console on the
// LCD.
package monitor

import (
	"errors"
	"fmt"
	"io"

	"ember/hal"
	"ember/internal/buildinfo"
	"ember/kernel"

	"github.com/google/shlex"
)

const (
	rxFifoWords = 64
	maxLine     = 128
)

// ErrUnknownCommand is returned by Exec for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Shell is a line-oriented command interpreter on the serial port. Bytes
// arrive through a kernel FIFO fed by the receive interrupt; the shell
// thread echoes them and runs each completed line.
type Shell struct {
	k    *kernel.Kernel
	out  io.Writer
	rx   *kernel.Fifo
	line []byte
	cmds []command

	// Prompt is written before every line.
	Prompt string
}

type command struct {
	name  string
	usage string
	help  string
	run   func(s *Shell, args []string) error
}

// NewShell returns a shell writing to out.
func NewShell(k *kernel.Kernel, out io.Writer) *Shell {
	s := &Shell{
		k:      k,
		out:    out,
		rx:     k.NewFifo(rxFifoWords),
		Prompt: "> ",
	}
	s.cmds = builtins()
	return s
}

// Attach installs the shell as the serial receive handler.
func (s *Shell) Attach(serial hal.Serial) error {
	if serial == nil {
		return hal.ErrNotImplemented
	}
	return serial.OnReceive(func(b byte) { s.rx.Put(uint32(b)) })
}

// Run is the body of the shell thread.
func (s *Shell) Run() {
	s.printf("ember monitor %s, type help\n", buildinfo.Short())
	s.write(s.Prompt)
	for {
		s.Feed(byte(s.rx.Get()))
	}
}

// Lost returns the number of received bytes dropped on a full FIFO.
func (s *Shell) Lost() uint32 { return s.rx.Lost() }

// Feed handles one received byte.
func (s *Shell) Feed(b byte) {
	switch b {
	case '\n', '\r':
		s.write("\n")
		line := string(s.line)
		s.line = s.line[:0]
		if err := s.Exec(line); err != nil {
			s.printf("error: %v\n", err)
		}
		s.write(s.Prompt)
	case 0x7f, '\b':
		if len(s.line) > 0 {
			s.line = s.line[:len(s.line)-1]
			s.write("\b \b")
		}
	case 0x03: // ^C
		s.line = s.line[:0]
		s.write("^C\n" + s.Prompt)
	case 0x15: // ^U
		for range s.line {
			s.write("\b \b")
		}
		s.line = s.line[:0]
	default:
		if b < 0x20 || b > 0x7e || len(s.line) >= maxLine {
			return
		}
		s.line = append(s.line, b)
		_, _ = s.out.Write([]byte{b})
	}
}

// Exec runs one command line.
func (s *Shell) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(args) == 0 {
		return nil
	}
	for _, c := range s.cmds {
		if c.name == args[0] {
			return c.run(s, args[1:])
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
}

func (s *Shell) write(str string) { _, _ = io.WriteString(s.out, str) }

func (s *Shell) printf(format string, args ...any) { _, _ = fmt.Fprintf(s.out, format, args...) }
