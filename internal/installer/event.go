package installer

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a kind of installer state change.
type EventType string

const (
	EventInstalled  EventType = "installed"
	EventRemoved    EventType = "removed"
	EventUpdated    EventType = "updated"
	EventConfigured EventType = "configured"
	EventReloaded   EventType = "reloaded"
)

// Event describes one state change, delivered to OnChange listeners.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	Plugin  string    `json:"plugin,omitempty"`
	Version string    `json:"version,omitempty"`
	Time    time.Time `json:"time"`
}

func newEvent(kind EventType, plugin, version string, at time.Time) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    kind,
		Plugin:  plugin,
		Version: version,
		Time:    at,
	}
}
