package input

import (
	"log"
	"sort"
	"time"
)

// Controller tracks which switches a host is holding and turns state
// changes into events. Hosts that only see key presses (terminals send no
// release) give it a hold time, after which an unrefreshed key is released.
type Controller struct {
	held     map[Key]time.Time
	holdTime time.Duration

	// Debug tracking
	pressCount   uint64
	releaseCount uint64
	debugEnabled bool
}

// NewController creates a controller. A zero holdTime disables expiry.
func NewController(holdTime time.Duration) *Controller {
	return &Controller{
		held:     make(map[Key]time.Time),
		holdTime: holdTime,
	}
}

// Press marks key as held at now. It returns a KeyDown event the first
// time and nothing for repeats, which only refresh the hold timer.
func (c *Controller) Press(key Key, now time.Time) []Event {
	_, wasHeld := c.held[key]
	c.held[key] = now
	if wasHeld {
		return nil
	}

	c.pressCount++
	if c.debugEnabled {
		log.Printf("[INPUT_DEBUG] Press: key=%s player=%d bit=%d", key, key.Player, key.Bit)
	}
	return []Event{KeyDown(key)}
}

// Release lets go of key, returning a KeyUp event if it was held
func (c *Controller) Release(key Key) []Event {
	if _, wasHeld := c.held[key]; !wasHeld {
		return nil
	}
	delete(c.held, key)

	c.releaseCount++
	if c.debugEnabled {
		log.Printf("[INPUT_DEBUG] Release: key=%s player=%d bit=%d", key, key.Player, key.Bit)
	}
	return []Event{KeyUp(key)}
}

// Expire releases every key that has not been refreshed within the hold time
func (c *Controller) Expire(now time.Time) []Event {
	if c.holdTime <= 0 {
		return nil
	}

	var expired []Key
	for key, pressedAt := range c.held {
		if now.Sub(pressedAt) >= c.holdTime {
			expired = append(expired, key)
		}
	}
	sortKeys(expired)

	var events []Event
	for _, key := range expired {
		events = append(events, c.Release(key)...)
	}
	return events
}

// ReleaseAll lets go of every held key
func (c *Controller) ReleaseAll() []Event {
	keys := make([]Key, 0, len(c.held))
	for key := range c.held {
		keys = append(keys, key)
	}
	sortKeys(keys)

	var events []Event
	for _, key := range keys {
		events = append(events, c.Release(key)...)
	}
	return events
}

// IsPressed returns true if key is currently held
func (c *Controller) IsPressed(key Key) bool {
	_, held := c.held[key]
	return held
}

// EnableDebugLogging enables/disables logging of state changes
func (c *Controller) EnableDebugLogging(enable bool) {
	c.debugEnabled = enable
}

// GetDebugInfo returns press/release counts and the number of held keys
func (c *Controller) GetDebugInfo() (presses, releases uint64, held int) {
	return c.pressCount, c.releaseCount, len(c.held)
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Player != keys[j].Player {
			return keys[i].Player < keys[j].Player
		}
		return keys[i].Bit < keys[j].Bit
	})
}
