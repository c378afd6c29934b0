package backend

import "github.com/hachiemu/hachi/hachi/memory"

// EventType distinguishes press and release input events.
type EventType int

const (
	Press EventType = iota
	Release
)

// Event is one input event translated from the platform: either a
// button state change or a quit request.
type Event struct {
	Button memory.Button
	Type   EventType
	Quit   bool
}

// Config holds backend configuration.
type Config struct {
	Title string
}

// Backend is a platform the emulator presents frames on: it renders
// each completed frame and translates platform input into events.
type Backend interface {
	// Init prepares the backend. Required before Update.
	Init(config Config) error

	// Update renders a frame of ARGB pixels (row-major, 160x144) and
	// returns the input events collected since the previous call.
	Update(frame []uint32) ([]Event, error)

	// Cleanup releases platform resources.
	Cleanup() error
}
