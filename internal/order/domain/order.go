package domain

import (
	"time"

	sharedBus "github.com/davicafu/eventify/internal/shared/infra/platform/bus"
	"github.com/google/uuid"
)

// Order es una compra de entrada completada (gratuita o de pago).
// Inmutable una vez creada en este flujo.
type Order struct {
	ID          uuid.UUID `json:"id"`
	PaymentRef  string    `json:"payment_ref"` // prueba de pago: payment id del gateway, o uuid fresco si es gratis
	EventID     uuid.UUID `json:"event_id"`
	BuyerID     string    `json:"buyer_id"` // clerk id del comprador
	TotalAmount string    `json:"total_amount"` // decimal como string, "0" si es gratis
	BuyerEmail  string    `json:"buyer_email"`
	EventTitle  string    `json:"event_title"`
	CreatedAt   time.Time `json:"created_at"`
}

func (o *Order) PartitionKey() string {
	return o.BuyerID
}

// Verificación estática
var _ sharedBus.Keyer = (*Order)(nil)
