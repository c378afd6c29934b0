// Package headless runs the emulator without a display, for automated
// testing and batch processing.
package headless

import (
	"log/slog"

	"github.com/hachiemu/hachi/hachi/backend"
)

// Backend counts frames and signals quit when the target is reached.
type Backend struct {
	config     backend.Config
	frameCount int
	maxFrames  int
}

// New creates a headless backend that stops after maxFrames frames.
// A maxFrames of zero runs forever.
func New(maxFrames int) *Backend {
	return &Backend{maxFrames: maxFrames}
}

func (h *Backend) Init(config backend.Config) error {
	h.config = config
	slog.Info("running headless", "frames", h.maxFrames)
	return nil
}

func (h *Backend) Update(frame []uint32) ([]backend.Event, error) {
	h.frameCount++

	if h.frameCount%600 == 0 {
		slog.Info("frame progress", "completed", h.frameCount, "total", h.maxFrames)
	}

	if h.maxFrames > 0 && h.frameCount >= h.maxFrames {
		slog.Info("headless run completed", "frames", h.frameCount)
		return []backend.Event{{Quit: true}}, nil
	}
	return nil, nil
}

func (h *Backend) Cleanup() error {
	return nil
}

// Frames returns the number of frames processed so far.
func (h *Backend) Frames() int { return h.frameCount }
