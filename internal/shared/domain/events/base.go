package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

// EventMetadata asocia un tipo de evento (string) con su struct Go y su topic.
// El worker de outbox lo usa para decodificar payloads al tipo correcto.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}
