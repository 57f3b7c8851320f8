package application

import (
	"context"
	"errors"
	"testing"
	"time"

	eventDomain "github.com/davicafu/eventify/internal/event/domain"
	"github.com/davicafu/eventify/internal/order/domain"
	sharedDomain "github.com/davicafu/eventify/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------- Fakes en memoria ----------------

type fakeCatalog struct {
	events map[uuid.UUID]*eventDomain.Event
}

func (c *fakeCatalog) GetEvent(ctx context.Context, id uuid.UUID) (*eventDomain.Event, error) {
	e, ok := c.events[id]
	if !ok {
		return nil, eventDomain.ErrEventNotFound
	}
	return e, nil
}

type inMemoryOrderRepo struct {
	orders []*domain.Order
	Outbox []sharedDomain.OutboxEvent
	err    error
}

func (r *inMemoryOrderRepo) Create(ctx context.Context, o *domain.Order, evt sharedDomain.OutboxEvent) error {
	if r.err != nil {
		return r.err
	}
	r.orders = append(r.orders, o)
	r.Outbox = append(r.Outbox, evt)
	return nil
}

func (r *inMemoryOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	for _, o := range r.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (r *inMemoryOrderRepo) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *inMemoryOrderRepo) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	return nil, nil
}

func (r *inMemoryOrderRepo) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	return nil
}

type fakeGateway struct {
	requests []domain.SessionRequest
	err      error
}

func (g *fakeGateway) CreateSession(ctx context.Context, req domain.SessionRequest) (*domain.PaymentSession, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &domain.PaymentSession{OrderID: "order_rzp_1", Amount: req.Amount, Currency: req.Currency}, nil
}

var _ EventCatalog = (*fakeCatalog)(nil)
var _ domain.OrderRepository = (*inMemoryOrderRepo)(nil)
var _ domain.PaymentGateway = (*fakeGateway)(nil)

const serverURL = "https://eventify.example.com"

func newTestEvent(price string, free bool) *eventDomain.Event {
	return &eventDomain.Event{
		ID:        uuid.New(),
		Title:     "Concierto",
		Price:     price,
		IsFree:    free,
		StartsAt:  time.Now().Add(24 * time.Hour),
		EndsAt:    time.Now().Add(26 * time.Hour),
		CreatedAt: time.Now().UTC(),
	}
}

func newCheckoutFixture(event *eventDomain.Event) (*CheckoutService, *inMemoryOrderRepo, *fakeGateway) {
	catalog := &fakeCatalog{events: map[uuid.UUID]*eventDomain.Event{event.ID: event}}
	repo := &inMemoryOrderRepo{}
	gateway := &fakeGateway{}
	service := NewCheckoutService(catalog, repo, gateway, nil, serverURL, "rzp_test_key", zap.NewNop())
	return service, repo, gateway
}

// ---------------- Tests ----------------

func TestCheckout_FreeEvent(t *testing.T) {
	event := newTestEvent("0", true)
	service, repo, gateway := newCheckoutFixture(event)

	result, err := service.Checkout(context.Background(), CheckoutRequest{
		EventID:    event.ID,
		BuyerID:    "clerk_buyer",
		BuyerEmail: "buyer@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusRedirected, result.Status)
	assert.Equal(t, serverURL+"/profile", result.RedirectURL)
	assert.True(t, result.OrderRecorded)

	// Orden con importe "0" y referencia fresca (no un id de pago real)
	require.Len(t, repo.orders, 1)
	assert.Equal(t, "0", repo.orders[0].TotalAmount)
	_, err = uuid.Parse(repo.orders[0].PaymentRef)
	assert.NoError(t, err)
	assert.Equal(t, event.Title, repo.orders[0].EventTitle)

	// ✅ Evento Outbox en la misma creación
	require.Len(t, repo.Outbox, 1)
	assert.Equal(t, domain.OrderCreated, repo.Outbox[0].EventType)

	// El gateway no se toca en entradas gratuitas
	assert.Empty(t, gateway.requests)
}

func TestCheckout_FreeEvent_RepoFailure(t *testing.T) {
	event := newTestEvent("0", true)
	service, repo, _ := newCheckoutFixture(event)
	repo.err = errors.New("db down")

	_, err := service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "b"})
	assert.Error(t, err)
}

func TestCheckout_PaidEvent(t *testing.T) {
	event := newTestEvent("499.99", false)
	service, repo, gateway := newCheckoutFixture(event)

	result, err := service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "b"})
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingPayment, result.Status)
	require.NotNil(t, result.Session)
	assert.Equal(t, "order_rzp_1", result.Session.OrderID)
	assert.Equal(t, "rzp_test_key", result.WidgetKey)
	assert.Empty(t, result.RedirectURL)

	// Importe en unidades menores (paise) y moneda INR
	require.Len(t, gateway.requests, 1)
	assert.Equal(t, int64(49999), gateway.requests[0].Amount)
	assert.Equal(t, "INR", gateway.requests[0].Currency)

	// Sin orden hasta que llegue la confirmación
	assert.Empty(t, repo.orders)
}

func TestCheckout_PaidEvent_GatewayFailure(t *testing.T) {
	event := newTestEvent("100", false)
	service, repo, gateway := newCheckoutFixture(event)
	gateway.err = errors.New("razorpay down")

	result, err := service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "b"})
	require.NoError(t, err)

	// Abortado: sin orden, sin redirección, sin sesión
	assert.Equal(t, StatusAborted, result.Status)
	assert.Empty(t, result.RedirectURL)
	assert.Nil(t, result.Session)
	assert.Empty(t, repo.orders)
}

func TestCheckout_PaidEvent_InvalidPrice(t *testing.T) {
	event := newTestEvent("gratis", false)
	service, repo, _ := newCheckoutFixture(event)

	result, err := service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "b"})
	require.NoError(t, err)

	assert.Equal(t, StatusAborted, result.Status)
	assert.Empty(t, repo.orders)
}

func TestCheckout_PaidEvent_NoGatewayConfigured(t *testing.T) {
	event := newTestEvent("100", false)
	catalog := &fakeCatalog{events: map[uuid.UUID]*eventDomain.Event{event.ID: event}}
	repo := &inMemoryOrderRepo{}
	service := NewCheckoutService(catalog, repo, nil, nil, serverURL, "", zap.NewNop())

	result, err := service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "b"})
	require.NoError(t, err)
	assert.Equal(t, StatusAborted, result.Status)
}

func TestCheckout_EventNotFound(t *testing.T) {
	event := newTestEvent("0", true)
	service, _, _ := newCheckoutFixture(event)

	_, err := service.Checkout(context.Background(), CheckoutRequest{EventID: uuid.New(), BuyerID: "b"})
	assert.ErrorIs(t, err, eventDomain.ErrEventNotFound)
}

func TestConfirm_RecordsOrderWithPaymentRef(t *testing.T) {
	event := newTestEvent("250.50", false)
	service, repo, _ := newCheckoutFixture(event)

	result, err := service.Confirm(context.Background(), ConfirmRequest{
		PaymentRef: "pay_ABC123",
		EventID:    event.ID,
		BuyerID:    "clerk_buyer",
		BuyerEmail: "buyer@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, StatusRedirected, result.Status)
	assert.Equal(t, serverURL+"/profile", result.RedirectURL)
	assert.True(t, result.OrderRecorded)

	require.Len(t, repo.orders, 1)
	assert.Equal(t, "pay_ABC123", repo.orders[0].PaymentRef)
	assert.Equal(t, "250.50", repo.orders[0].TotalAmount)
}

func TestConfirm_RepoFailureStillRedirects(t *testing.T) {
	event := newTestEvent("100", false)
	service, repo, _ := newCheckoutFixture(event)
	repo.err = errors.New("db down")

	result, err := service.Confirm(context.Background(), ConfirmRequest{
		PaymentRef: "pay_XYZ",
		EventID:    event.ID,
		BuyerID:    "b",
	})
	require.NoError(t, err)

	// La navegación post-pago no se bloquea, pero el fallo queda expuesto
	assert.Equal(t, StatusRedirected, result.Status)
	assert.Equal(t, serverURL+"/profile", result.RedirectURL)
	assert.False(t, result.OrderRecorded)
	assert.Empty(t, repo.orders)
}

func TestListOrders_FiltersByBuyer(t *testing.T) {
	event := newTestEvent("0", true)
	service, repo, _ := newCheckoutFixture(event)

	_, err := service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "buyer_a"})
	require.NoError(t, err)
	_, err = service.Checkout(context.Background(), CheckoutRequest{EventID: event.ID, BuyerID: "buyer_b"})
	require.NoError(t, err)

	orders, err := service.ListOrders(context.Background(), "buyer_a")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "buyer_a", orders[0].BuyerID)
	assert.Len(t, repo.orders, 2)
}
