package application

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/davicafu/eventify/internal/event/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventService define los casos de uso del catálogo de eventos.
type EventService struct {
	repo domain.EventRepository
	log  *zap.Logger
}

func NewEventService(repo domain.EventRepository, log *zap.Logger) *EventService {
	return &EventService{repo: repo, log: log}
}

// CreateEvent da de alta un evento en el catálogo. El precio "0" (o vacío)
// implica entrada gratuita.
func (s *EventService) CreateEvent(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	if e.Title == "" {
		return nil, domain.ErrInvalidEvent
	}

	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	if e.Price == "" {
		e.Price = "0"
	}
	e.IsFree = isZeroPrice(e.Price)

	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "event",
		AggregateID:   e.ID.String(),
		EventType:     domain.EventCreated,
		Payload:       e,
		CreatedAt:     time.Now().UTC(),
		Processed:     false,
	}

	if err := s.repo.Create(ctx, e, evt); err != nil {
		return nil, err
	}

	return e, nil
}

// GetEvent obtiene un evento por id.
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.repo.GetByID(ctx, id)
}

// ListEvents devuelve el catálogo aplicando filtros.
func (s *EventService) ListEvents(ctx context.Context, f domain.EventFilter) ([]*domain.Event, error) {
	return s.repo.List(ctx, f)
}

func isZeroPrice(price string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil {
		return false
	}
	return v == 0
}
