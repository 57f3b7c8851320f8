package domain

import (
	"fmt"
	"time"

	sharedBus "github.com/davicafu/eventify/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// User es el registro local del directorio de usuarios, sincronizado vía
// webhooks del proveedor de identidad (Clerk).
type User struct {
	ID        uuid.UUID `json:"id"`       // id interno, opaco
	ClerkID   string    `json:"clerk_id"` // id externo, único e inmutable
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Photo     string    `json:"photo"`
	CreatedAt time.Time `json:"created_at"`
}

// PartitionKey particiona los eventos por usuario externo.
func (u *User) PartitionKey() string {
	return u.ClerkID
}

// Verificación estática para asegurar que User implementa la interfaz
var _ sharedBus.Keyer = (*User)(nil)

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByClerkID forma una key consistente para cache usando el id externo.
func CacheKeyByClerkID(clerkID string) string {
	return fmt.Sprintf("user:clerk:%s", clerkID)
}
