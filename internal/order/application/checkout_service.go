package application

import (
	"context"
	"math"
	"strconv"
	"time"

	eventDomain "github.com/davicafu/eventify/internal/event/domain"
	"github.com/davicafu/eventify/internal/order/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutStatus es el resultado explícito de un intento de checkout.
// Sustituye al tragado silencioso de errores del widget: cada terminal del
// flujo es observable por el llamante.
type CheckoutStatus string

const (
	// StatusRedirected: terminal, la compra quedó registrada (o se intentó)
	// y el comprador navega al destino post-checkout.
	StatusRedirected CheckoutStatus = "redirected"
	// StatusAwaitingPayment: sesión creada, el widget hospedado queda abierto
	// a la espera del callback de confirmación.
	StatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	// StatusAborted: terminal, sin orden creada y sin navegación.
	StatusAborted CheckoutStatus = "aborted"
)

// CheckoutRequest son los parámetros que recoge el botón de compra.
type CheckoutRequest struct {
	EventID    uuid.UUID
	BuyerID    string
	BuyerEmail string
}

// ConfirmRequest llega con el callback de completitud del widget.
type ConfirmRequest struct {
	PaymentRef string // razorpay_payment_id
	EventID    uuid.UUID
	BuyerID    string
	BuyerEmail string
}

// CheckoutResult expone el estado terminal (o intermedio) del intento.
type CheckoutResult struct {
	Status        CheckoutStatus          `json:"status"`
	RedirectURL   string                  `json:"redirect_url,omitempty"`
	Order         *domain.Order           `json:"order,omitempty"`
	OrderRecorded bool                    `json:"order_recorded"`
	Session       *domain.PaymentSession  `json:"session,omitempty"`
	WidgetKey     string                  `json:"widget_key,omitempty"` // clave pública del widget
}

// EventCatalog es la vista del catálogo que necesita el checkout.
type EventCatalog interface {
	GetEvent(ctx context.Context, id uuid.UUID) (*eventDomain.Event, error)
}

// CheckoutService orquesta un intento de checkout: gratis => orden directa y
// redirección; de pago => sesión en el gateway, widget, y orden al confirmar.
type CheckoutService struct {
	catalog   EventCatalog
	orders    domain.OrderRepository
	gateway   domain.PaymentGateway
	analytics domain.CheckoutLog // puede ser nil
	serverURL string
	widgetKey string
	log       *zap.Logger
}

func NewCheckoutService(
	catalog EventCatalog,
	orders domain.OrderRepository,
	gateway domain.PaymentGateway,
	analytics domain.CheckoutLog,
	serverURL string,
	widgetKey string,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		catalog:   catalog,
		orders:    orders,
		gateway:   gateway,
		analytics: analytics,
		serverURL: serverURL,
		widgetKey: widgetKey,
		log:       log,
	}
}

// Checkout es el estado inicial de la máquina. Sin reintentos en todo el flujo.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	event, err := s.catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	if event.IsFree {
		// Entrada gratuita: orden con importe "0" y referencia fresca,
		// creada ANTES de cualquier navegación. Sin widget.
		order := s.buildOrder(uuid.NewString(), event, req.BuyerID, req.BuyerEmail, "0")

		if err := s.createOrder(ctx, order); err != nil {
			return nil, err
		}

		return &CheckoutResult{
			Status:        StatusRedirected,
			RedirectURL:   s.serverURL + "/profile",
			Order:         order,
			OrderRecorded: true,
		}, nil
	}

	// Entrada de pago: crear la sesión en el gateway. El fallo equivale a no
	// poder cargar el widget: abortado, sin orden y sin navegación.
	if s.gateway == nil {
		s.log.Error("Payment gateway not configured", zap.String("event_id", event.ID.String()))
		return &CheckoutResult{Status: StatusAborted}, nil
	}

	amount, err := toMinorUnits(event.Price)
	if err != nil {
		s.log.Error("Invalid event price", zap.String("event_id", event.ID.String()), zap.String("price", event.Price), zap.Error(err))
		return &CheckoutResult{Status: StatusAborted}, nil
	}

	session, err := s.gateway.CreateSession(ctx, domain.SessionRequest{
		Amount:   amount,
		Currency: "INR",
		Receipt:  uuid.NewString(),
	})
	if err != nil {
		s.log.Error("Failed to create payment session",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
		return &CheckoutResult{Status: StatusAborted}, nil
	}

	return &CheckoutResult{
		Status:    StatusAwaitingPayment,
		Session:   session,
		WidgetKey: s.widgetKey,
	}, nil
}

// Confirm es la única reentrada asíncrona: el callback del widget con la
// referencia de pago. Redirige SIEMPRE, aunque el registro de la orden falle;
// el fallo queda logueado y expuesto en OrderRecorded.
func (s *CheckoutService) Confirm(ctx context.Context, req ConfirmRequest) (*CheckoutResult, error) {
	event, err := s.catalog.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(req.PaymentRef, event, req.BuyerID, req.BuyerEmail, event.Price)

	recorded := true
	if err := s.createOrder(ctx, order); err != nil {
		recorded = false
		s.log.Error("Error creating order after payment",
			zap.String("payment_ref", req.PaymentRef),
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}

	return &CheckoutResult{
		Status:        StatusRedirected,
		RedirectURL:   s.serverURL + "/profile",
		Order:         order,
		OrderRecorded: recorded,
	}, nil
}

// ListOrders devuelve las compras de un usuario.
func (s *CheckoutService) ListOrders(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

func (s *CheckoutService) buildOrder(paymentRef string, event *eventDomain.Event, buyerID, buyerEmail, amount string) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		PaymentRef:  paymentRef,
		EventID:     event.ID,
		BuyerID:     buyerID,
		TotalAmount: amount,
		BuyerEmail:  buyerEmail,
		EventTitle:  event.Title,
		CreatedAt:   time.Now().UTC(),
	}
}

func (s *CheckoutService) createOrder(ctx context.Context, order *domain.Order) error {
	evt := sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "order",
		AggregateID:   order.ID.String(),
		EventType:     domain.OrderCreated,
		Payload:       order,
		CreatedAt:     time.Now().UTC(),
		Processed:     false,
	}

	if err := s.orders.Create(ctx, order, evt); err != nil {
		return err
	}

	if s.analytics != nil {
		go func(o *domain.Order) {
			ctxLog, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.analytics.LogBatch(ctxLog, []*domain.Order{o}); err != nil {
				s.log.Warn("⚠️ Checkout analytics log failed", zap.String("order_id", o.ID.String()), zap.Error(err))
			}
		}(order)
	}

	return nil
}

// toMinorUnits convierte el precio decimal (string) a unidades menores (paise).
func toMinorUnits(price string) (int64, error) {
	v, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(v * 100)), nil
}
