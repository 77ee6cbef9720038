package events

import (
	"log/slog"

	"github.com/princekumarofficial/impact-stories/internal/types"
)

// StoryHub is the part of the WebSocket hub the publisher needs
type StoryHub interface {
	BroadcastToStory(storyID string, event *types.Event)
}

// EventPublisher turns story changes into WebSocket events
type EventPublisher struct {
	hub StoryHub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub StoryHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishStoryEvent broadcasts data to the clients following the story.
func (p *EventPublisher) PublishStoryEvent(eventType types.EventType, data *types.StoryEvent) {
	if data == nil || data.StoryID == "" {
		slog.Warn("Dropping story event without story id", slog.String("event", string(eventType)))
		return
	}
	p.hub.BroadcastToStory(data.StoryID, types.NewEvent(eventType, data))
}

// Nop discards every event
type Nop struct{}

func (Nop) PublishStoryEvent(types.EventType, *types.StoryEvent) {}
