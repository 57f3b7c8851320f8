package domain

import (
	"context"
	"errors"

	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

// ---------- Interfaces (Ports) ----------

// OrderRepository define las operaciones persistentes para Order.
type OrderRepository interface {
	// Debe devolver ErrOrderAlreadyExists si la entidad ya existe.
	Create(ctx context.Context, o *Order, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrOrderNotFound si no existe.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// ListByBuyer devuelve las compras de un usuario (clerk id).
	ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error)

	FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error)
	MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error
}

// PaymentSession es la sesión creada en el gateway antes de abrir el widget.
type PaymentSession struct {
	OrderID  string // id de la orden en el gateway (order_id de Razorpay)
	Amount   int64  // en unidades menores (paise)
	Currency string
}

// SessionRequest son los parámetros para crear la sesión de pago.
type SessionRequest struct {
	Amount   int64 // en unidades menores (paise)
	Currency string
	Receipt  string
}

// PaymentGateway crea sesiones de pago en el proveedor hospedado.
// El fallo aquí equivale al fallo de carga del widget: checkout abortado.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
}

// CheckoutLog es el sink analítico append-only de checkouts completados.
// Best-effort: su fallo nunca afecta al flujo de compra.
type CheckoutLog interface {
	LogBatch(ctx context.Context, orders []*Order) error
}
