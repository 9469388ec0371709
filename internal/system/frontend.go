package system

import "invaders/internal/input"

// Canvas is the drawing surface a host provides. Rectangles may fall
// partly or wholly outside the surface and must be clipped.
type Canvas interface {
	Clear()
	SetColor(r, g, b uint8)
	FillRect(x, y, width, height int)
	Present() error
}

// EventSource delivers host input to the frame loop
type EventSource interface {
	PollEvents() []input.Event
	Notify(event input.Event)
}

// Frontend bundles the host collaborators of a System
type Frontend struct {
	Canvas Canvas
	Events EventSource
}

// NewDummyFrontend returns a frontend that draws nothing and delivers only
// events passed to Notify
func NewDummyFrontend() Frontend {
	return Frontend{Canvas: dummyCanvas{}, Events: input.NewQueue()}
}

type dummyCanvas struct{}

func (dummyCanvas) Clear() {}
func (dummyCanvas) SetColor(r, g, b uint8) {}
func (dummyCanvas) FillRect(x, y, w, h int) {}
func (dummyCanvas) Present() error { return nil }
