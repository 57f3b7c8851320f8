package domain

import (
	"time"

	sharedBus "github.com/davicafu/eventify/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// Event es un evento del catálogo con entradas a la venta.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"image_url"`
	Price       string    `json:"price"` // decimal como string, ej. "499.00"
	IsFree      bool      `json:"is_free"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	OrganizerID string    `json:"organizer_id"` // clerk id del organizador
	CreatedAt   time.Time `json:"created_at"`
}

func (e *Event) PartitionKey() string {
	return e.ID.String()
}

// Verificación estática
var _ sharedBus.Keyer = (*Event)(nil)
