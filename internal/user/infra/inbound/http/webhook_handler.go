package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"github.com/davicafu/eventify/internal/user/domain"
)

// UserSyncer son los casos de uso que el dispatcher del webhook necesita.
type UserSyncer interface {
	HandleUserCreated(ctx context.Context, data domain.ClerkUserData) (*domain.User, error)
	HandleUserUpdated(ctx context.Context, data domain.ClerkUserData) (*domain.User, error)
	HandleUserDeleted(ctx context.Context, clerkID string) (*domain.User, error)
}

// WebhookHandler recibe los webhooks firmados (Svix) del proveedor de
// identidad y despacha sobre el tipo de evento ya verificado.
type WebhookHandler struct {
	secret  string // secreto compartido de Svix; "" => misconfiguración (500)
	service UserSyncer
	log     *zap.Logger
}

func NewWebhookHandler(secret string, service UserSyncer, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secret:  secret,
		service: service,
		log:     log,
	}
}

// HandleClerkWebhook endpoint POST /api/webhook/clerk
//
// Falla cerrado: secreto ausente, cabeceras ausentes, body inválido o firma
// incorrecta rechazan la request ANTES de interpretar el payload.
func (h *WebhookHandler) HandleClerkWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing WEBHOOK_SECRET"})
		return
	}

	svixID := c.GetHeader("svix-id")
	svixTimestamp := c.GetHeader("svix-timestamp")
	svixSignature := c.GetHeader("svix-signature")

	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Svix headers"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	wh, err := svix.NewWebhook(h.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Missing WEBHOOK_SECRET"})
		return
	}

	if err := wh.Verify(body, c.Request.Header); err != nil {
		h.log.Warn("Error verifying webhook", zap.String("svix_id", svixID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook verification failed"})
		return
	}

	var evt domain.ClerkEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	h.dispatch(c, svixID, evt)
}

// dispatch ejecuta exactamente una de las tres mutaciones de ciclo de vida,
// o responde acuse de recibo si el tag no es reconocido.
func (h *WebhookHandler) dispatch(c *gin.Context, svixID string, evt domain.ClerkEvent) {
	ctx := c.Request.Context()

	switch evt.Kind() {
	case domain.KindUserCreated:
		user, err := h.service.HandleUserCreated(ctx, evt.Data)
		if err != nil {
			h.fail(c, svixID, evt, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User created successfully", "user": user})

	case domain.KindUserUpdated:
		user, err := h.service.HandleUserUpdated(ctx, evt.Data)
		if err != nil {
			h.fail(c, svixID, evt, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": user})

	case domain.KindUserDeleted:
		user, err := h.service.HandleUserDeleted(ctx, evt.Data.ID)
		if err != nil {
			h.fail(c, svixID, evt, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully", "user": user})

	case domain.KindUnknown:
		c.JSON(http.StatusOK, gin.H{"message": "Unhandled event type", "eventType": evt.Type, "id": evt.Data.ID})
	}
}

// fail loguea con el delivery id y responde 500 genérico para que el
// proveedor reintente. Nunca filtra el detalle interno del error.
func (h *WebhookHandler) fail(c *gin.Context, svixID string, evt domain.ClerkEvent, err error) {
	h.log.Error("Error processing event",
		zap.String("svix_id", svixID),
		zap.String("event_type", evt.Type),
		zap.String("clerk_id", evt.Data.ID),
		zap.Error(err),
	)

	id := evt.Data.ID
	if id == "" {
		id = "Unknown"
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "id": id})
}
