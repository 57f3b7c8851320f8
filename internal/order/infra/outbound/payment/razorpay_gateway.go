package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"github.com/davicafu/eventify/internal/order/domain"
)

// RazorpayGateway crea órdenes de pago en Razorpay. Se inyecta como handle
// explícito en el servicio de checkout, nunca como singleton global.
type RazorpayGateway struct {
	client *razorpay.Client
	log    *zap.Logger
}

func NewRazorpayGateway(keyID, keySecret string, log *zap.Logger) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, fmt.Errorf("razorpay credentials are required")
	}
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		log:    log,
	}, nil
}

func (g *RazorpayGateway) CreateSession(ctx context.Context, req domain.SessionRequest) (*domain.PaymentSession, error) {
	data := map[string]interface{}{
		"amount":   req.Amount, // en paise
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create failed: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("razorpay order create returned no id")
	}

	g.log.Debug("Payment session created", zap.String("order_id", orderID))

	return &domain.PaymentSession{
		OrderID:  orderID,
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

// Verificación estática
var _ domain.PaymentGateway = (*RazorpayGateway)(nil)
