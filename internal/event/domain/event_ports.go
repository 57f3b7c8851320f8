package domain

import (
	"context"
	"errors"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrEventNotFound      = errors.New("event not found")
	ErrEventAlreadyExists = errors.New("event already exists")
	ErrInvalidEvent       = errors.New("invalid event")
)

// ---------- Interfaces (Ports) ----------

// EventRepository define las operaciones persistentes para Event.
type EventRepository interface {
	// Debe devolver ErrEventAlreadyExists si la entidad ya existe.
	Create(ctx context.Context, e *Event, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrEventNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)

	// List devuelve eventos según el filtro. Filtro vacío => todos.
	List(ctx context.Context, f EventFilter) ([]*Event, error)
}

// EventFilter agrupa criterios de búsqueda para EventRepository.List.
type EventFilter struct {
	Title       *string // LIKE en el repo
	OrganizerID *string
	OnlyFree    bool

	Limit  int
	Offset int
}
