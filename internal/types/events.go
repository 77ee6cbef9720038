package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventStoryCreated EventType = "story.created"
	EventStoryUpdated EventType = "story.updated"
	EventStoryDeleted EventType = "story.deleted"
	EventMediaAdded   EventType = "story.media_added"
	EventMediaRemoved EventType = "story.media_removed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// StoryEvent carries the identity of the story that changed
type StoryEvent struct {
	StoryID    string   `json:"story_id"`
	Version    int      `json:"version,omitempty"`
	MediaCount int      `json:"media_count"`
	PublicIDs  []string `json:"public_ids,omitempty"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
