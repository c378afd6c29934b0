// Package terminal renders the emulator into a terminal using tcell,
// drawing two pixels per character cell with the upper-half-block glyph.
package terminal

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/hachiemu/hachi/hachi/backend"
	"github.com/hachiemu/hachi/hachi/memory"
	"github.com/hachiemu/hachi/hachi/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	// terminals deliver key repeats but no release events, so a button
	// is released when its repeats stop arriving
	keyTimeout = 100 * time.Millisecond
)

// Backend implements backend.Backend on a tcell screen.
type Backend struct {
	screen tcell.Screen
	config backend.Config

	lastSeen map[memory.Button]time.Time
	held     map[memory.Button]bool
	quit     bool
}

func New() *Backend {
	return &Backend{
		lastSeen: make(map[memory.Button]time.Time),
		held:     make(map[memory.Button]bool),
	}
}

func (t *Backend) Init(config backend.Config) error {
	t.config = config

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	screen.Clear()

	t.screen = screen
	return nil
}

func (t *Backend) Update(frame []uint32) ([]backend.Event, error) {
	now := time.Now()

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKey(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.collectEvents(now)
	if t.quit {
		events = append(events, backend.Event{Quit: true})
	}

	t.drawFrame(frame)
	t.screen.Show()
	return events, nil
}

func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) processKey(ev *tcell.EventKey, now time.Time) {
	if button, ok := mapKey(ev); ok {
		t.lastSeen[button] = now
		return
	}
	switch {
	case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
		t.quit = true
	case ev.Rune() == 'q':
		t.quit = true
	}
}

func mapKey(ev *tcell.EventKey) (memory.Button, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return memory.ButtonUp, true
	case tcell.KeyDown:
		return memory.ButtonDown, true
	case tcell.KeyLeft:
		return memory.ButtonLeft, true
	case tcell.KeyRight:
		return memory.ButtonRight, true
	case tcell.KeyEnter:
		return memory.ButtonStart, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return memory.ButtonSelect, true
	}
	switch ev.Rune() {
	case 'z':
		return memory.ButtonB, true
	case 'x':
		return memory.ButtonA, true
	}
	return 0, false
}

// collectEvents turns the key timestamp map into press/release edges.
func (t *Backend) collectEvents(now time.Time) []backend.Event {
	var events []backend.Event

	for button, seen := range t.lastSeen {
		active := now.Sub(seen) < keyTimeout
		switch {
		case active && !t.held[button]:
			t.held[button] = true
			events = append(events, backend.Event{Button: button, Type: backend.Press})
		case !active && t.held[button]:
			t.held[button] = false
			events = append(events, backend.Event{Button: button, Type: backend.Release})
			delete(t.lastSeen, button)
		}
	}
	return events
}

func (t *Backend) drawFrame(frame []uint32) {
	if len(frame) < width*height {
		return
	}
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			top := rgbColor(frame[y*width+x])
			bottom := rgbColor(frame[(y+1)*width+x])
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}

func rgbColor(argb uint32) tcell.Color {
	return tcell.NewRGBColor(
		int32(argb>>16&0xFF),
		int32(argb>>8&0xFF),
		int32(argb&0xFF))
}
