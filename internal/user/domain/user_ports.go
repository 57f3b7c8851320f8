package domain

import (
	"context"
	"errors"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidUser       = errors.New("invalid user")
)

// ---------- Interfaces (Ports) ----------

// UserRepository define las operaciones persistentes para User.
// El directorio se indexa por ClerkID (id externo), no por el id interno.
type UserRepository interface {
	// Debe devolver ErrUserAlreadyExists si el ClerkID ya existe.
	Create(ctx context.Context, u *User, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrUserNotFound si no existe.
	GetByClerkID(ctx context.Context, clerkID string) (*User, error)

	// Debe devolver ErrUserNotFound si el usuario no existe.
	Update(ctx context.Context, u *User, evt sharedDomain.OutboxEvent) error

	// Devuelve el usuario eliminado, o ErrUserNotFound si no existe.
	DeleteByClerkID(ctx context.Context, clerkID string, evt sharedDomain.OutboxEvent) (*User, error)

	// List devuelve usuarios según el filtro. Filtro vacío => todos.
	List(ctx context.Context, f UserFilter) ([]*User, error)

	// FetchPendingOutbox obtiene los eventos no procesados, hasta un máximo
	FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error)

	// MarkOutboxProcessed marca un evento como procesado
	MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error
}

type UserCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error
	Delete(ctx context.Context, key string) error
}

// IdentityMetadata es el estado derivado que se empuja de vuelta al proveedor
// de identidad tras crear el registro local.
type IdentityMetadata struct {
	UserID string // id interno recién asignado
	Photo  string
}

// MetadataPusher publica metadatos públicos en el proveedor de identidad.
// Es una escritura secundaria best-effort: su fallo no revierte la creación.
type MetadataPusher interface {
	PushUserMetadata(ctx context.Context, clerkID string, md IdentityMetadata) error
}

// ---------- Tipos de filtrado / paginación ----------

// Pagination describe límite y offset.
type Pagination struct {
	Limit  int
	Offset int
}

// Sort indica campo y dirección.
type Sort struct {
	Field string // ej. "created_at", "username", "email"
	Desc  bool
}

// UserFilter agrupa criterios de búsqueda que puede usar UserRepository.List.
type UserFilter struct {
	ClerkID  *string
	Email    *string
	Username *string // puede interpretarse como LIKE en el repo

	Pagination Pagination
	Sort       Sort
}
