package input

import (
	"errors"
	"fmt"
	"sync"
)

// ErrQuit is returned by Apply when the host asked to stop
var ErrQuit = errors.New("quit requested")

// EventType distinguishes the events a host can deliver
type EventType int

const (
	EventQuit EventType = iota
	EventKeyDown
	EventKeyUp
)

func (t EventType) String() string {
	switch t {
	case EventQuit:
		return "Quit"
	case EventKeyDown:
		return "KeyDown"
	case EventKeyUp:
		return "KeyUp"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is a single host input event. Key is ignored for EventQuit.
type Event struct {
	Type EventType
	Key  Key
}

// KeyDown returns a press event for key
func KeyDown(key Key) Event {
	return Event{Type: EventKeyDown, Key: key}
}

// KeyUp returns a release event for key
func KeyUp(key Key) Event {
	return Event{Type: EventKeyUp, Key: key}
}

// Quit returns a quit event
func Quit() Event {
	return Event{Type: EventQuit}
}

// Latches is implemented by anything holding the input ports, usually the CPU
type Latches interface {
	SetInputBit(player, bit uint8, pressed bool)
}

// Apply feeds events into the latches in order. A quit event stops
// processing and returns ErrQuit; events before it are still applied.
func Apply(events []Event, latches Latches) error {
	for _, event := range events {
		switch event.Type {
		case EventQuit:
			return ErrQuit
		case EventKeyDown:
			latches.SetInputBit(event.Key.Player, event.Key.Bit, true)
		case EventKeyUp:
			latches.SetInputBit(event.Key.Player, event.Key.Bit, false)
		}
	}
	return nil
}

// Queue is a thread-safe event buffer. Producers call Notify from any
// goroutine; the frame loop drains it with PollEvents.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Notify appends an event
func (q *Queue) Notify(event Event) {
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()
}

// PollEvents returns and clears the pending events
func (q *Queue) PollEvents() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	events := q.events
	q.events = nil
	return events
}

// Len returns the number of pending events
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
