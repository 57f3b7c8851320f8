package domain

import (
	"reflect"

	sharedEvents "github.com/davicafu/eventify/internal/shared/domain/events"
)

const (
	OrderCreated = "order.created"
)

const OrderTopic = "order"

func NewEventRegistry() map[string]sharedEvents.EventMetadata {
	return map[string]sharedEvents.EventMetadata{
		OrderCreated: {
			Type:  reflect.TypeOf(Order{}),
			Topic: OrderTopic,
		},
	}
}
