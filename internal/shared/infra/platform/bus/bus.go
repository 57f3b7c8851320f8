package bus

import "context"

// Keyer permite a un evento aportar su clave de partición (ej. Kafka).
type Keyer interface {
	PartitionKey() string
}

// EventPublisher publica eventos ya tipados en el bus.
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}

// EventBus es el alias que usan los adapters de infraestructura.
type EventBus = EventPublisher
