// Package serial provides peers for the link port. The core only needs
// something on the other end of SB/SC that completes transfers and
// raises the serial interrupt; a real link cable is out of scope.
package serial

import (
	"log/slog"

	"github.com/hachiemu/hachi/hachi/addr"
	"github.com/hachiemu/hachi/hachi/bit"
)

// LogSink is a serial peer that consumes outgoing bytes and logs them as
// text. Test programs commonly report results over the link port, so the
// sink also records everything it receives.
type LogSink struct {
	irq            func()
	sb, sc         byte
	transferActive bool
	countdown      int
	logger         *slog.Logger

	immediate bool
	defaultRX byte

	line     []byte
	received []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming completes transfers after the DMG bit clock's ~4096
// cycles per byte instead of immediately.
func WithFixedTiming() LogSinkOption { return func(s *LogSink) { s.immediate = false } }

// NewLogSink creates a logging serial peer. irq is called when a
// transfer completes and should request the serial interrupt.
func NewLogSink(irq func(), opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		irq:       irq,
		immediate: true,
		defaultRX: 0xFF,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Reset()
	return s
}

func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value
		s.maybeStartTransfer()
	}
}

func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | 0x7E
	}
	return 0xFF
}

func (s *LogSink) Tick(cycles int) {
	if s.immediate || !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
	}
}

func (s *LogSink) Reset() {
	s.sb = 0
	s.sc = 0
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
	s.received = s.received[:0]
}

// Output returns every byte written out since the last Reset.
func (s *LogSink) Output() []byte {
	out := make([]byte, len(s.received))
	copy(out, s.received)
	return out
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// a transfer starts when both the start bit and the internal clock
	// bit are set; with an external clock there is no peer to drive it.
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	b := s.sb
	s.received = append(s.received, b)
	if b == 0 || b == '\n' || b == '\r' {
		if len(s.line) > 0 {
			s.logger.Info("serial", "line", string(s.line))
			s.line = s.line[:0]
		}
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}

	s.transferActive = true
	s.countdown = 4096
}

func (s *LogSink) completeTransfer() {
	s.sb = s.defaultRX
	s.sc = bit.Clear(7, s.sc)
	s.transferActive = false
	s.countdown = 0
	if s.irq != nil {
		s.irq()
	}
}
