package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/eventify/internal/shared/domain/events"
)

const (
	EventCreated = "event.created"
)

const EventTopic = "event"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		EventCreated: {
			Type:  reflect.TypeOf(Event{}),
			Topic: EventTopic,
		},
	}
}
