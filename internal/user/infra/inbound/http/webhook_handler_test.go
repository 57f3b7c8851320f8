package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
	"go.uber.org/zap"

	"github.com/davicafu/eventify/internal/user/domain"
)

// Secreto de ejemplo de la documentación de Svix, solo para firmar en tests.
const testSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

// fakeSyncer registra las invocaciones del dispatcher.
type fakeSyncer struct {
	created []domain.ClerkUserData
	updated []domain.ClerkUserData
	deleted []string
	err     error
}

func (f *fakeSyncer) HandleUserCreated(ctx context.Context, data domain.ClerkUserData) (*domain.User, error) {
	f.created = append(f.created, data)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: uuid.New(), ClerkID: data.ID, Email: data.PrimaryEmail()}, nil
}

func (f *fakeSyncer) HandleUserUpdated(ctx context.Context, data domain.ClerkUserData) (*domain.User, error) {
	f.updated = append(f.updated, data)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: uuid.New(), ClerkID: data.ID}, nil
}

func (f *fakeSyncer) HandleUserDeleted(ctx context.Context, clerkID string) (*domain.User, error) {
	f.deleted = append(f.deleted, clerkID)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.User{ID: uuid.New(), ClerkID: clerkID}, nil
}

var _ UserSyncer = (*fakeSyncer)(nil)

func newWebhookRouter(secret string, service UserSyncer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterWebhookRoutes(router, NewWebhookHandler(secret, service, zap.NewNop()))
	return router
}

// signedRequest construye una request con firma Svix válida sobre el payload.
func signedRequest(t *testing.T, payload []byte) *http.Request {
	t.Helper()

	wh, err := svix.NewWebhook(testSecret)
	require.NoError(t, err)

	msgID := "msg_" + uuid.NewString()
	ts := time.Now()

	signature, err := wh.Sign(msgID, ts, payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/clerk", bytes.NewReader(payload))
	req.Header.Set("svix-id", msgID)
	req.Header.Set("svix-timestamp", strconv.FormatInt(ts.Unix(), 10))
	req.Header.Set("svix-signature", signature)
	return req
}

func eventPayload(t *testing.T, eventType string, data map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{"type": eventType, "data": data})
	require.NoError(t, err)
	return payload
}

// ---------------- Tests ----------------

func TestWebhook_MissingSecret(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter("", service)

	req := signedRequest(t, eventPayload(t, "user.created", map[string]interface{}{"id": "clerk_1"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Missing WEBHOOK_SECRET")
	assert.Empty(t, service.created)
}

func TestWebhook_MissingHeaders(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	payload := eventPayload(t, "user.created", map[string]interface{}{"id": "clerk_1"})
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/clerk", bytes.NewReader(payload))
	// Solo dos de las tres cabeceras
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing Svix headers")
	assert.Empty(t, service.created)
}

func TestWebhook_InvalidJSONBody(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook/clerk", bytes.NewReader([]byte("no es json")))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("svix-signature", "v1,Zm9v")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid JSON body")
	assert.Empty(t, service.created)
}

func TestWebhook_BadSignature(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	payload := eventPayload(t, "user.created", map[string]interface{}{"id": "clerk_1"})
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/clerk", bytes.NewReader(payload))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("svix-signature", "v1,aW52YWxpZA==")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Webhook verification failed")
	assert.Empty(t, service.created)
}

func TestWebhook_UserCreated(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	req := signedRequest(t, eventPayload(t, "user.created", map[string]interface{}{
		"id":              "clerk_1",
		"email_addresses": []map[string]string{{"email_address": "ana@example.com"}},
		"username":        "anag",
	}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User created successfully")

	require.Len(t, service.created, 1)
	assert.Equal(t, "clerk_1", service.created[0].ID)
	assert.Equal(t, "ana@example.com", service.created[0].PrimaryEmail())
}

func TestWebhook_UserCreated_WithoutEmails(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	req := signedRequest(t, eventPayload(t, "user.created", map[string]interface{}{"id": "clerk_2"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, service.created, 1)
	assert.Equal(t, "", service.created[0].PrimaryEmail())
}

func TestWebhook_UnknownEventType(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	req := signedRequest(t, eventPayload(t, "session.created", map[string]interface{}{"id": "sess_1"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Acuse de recibo sin mutación
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unhandled event type")
	assert.Empty(t, service.created)
	assert.Empty(t, service.updated)
	assert.Empty(t, service.deleted)
}

func TestWebhook_ServiceFailure(t *testing.T) {
	service := &fakeSyncer{err: errors.New("db down")}
	router := newWebhookRouter(testSecret, service)

	req := signedRequest(t, eventPayload(t, "user.created", map[string]interface{}{"id": "clerk_3"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.Contains(t, w.Body.String(), "clerk_3")
	// El detalle interno del error nunca se filtra
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestWebhook_ServiceFailure_WithoutID(t *testing.T) {
	service := &fakeSyncer{err: errors.New("db down")}
	router := newWebhookRouter(testSecret, service)

	req := signedRequest(t, eventPayload(t, "user.created", map[string]interface{}{}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown")
}

func TestWebhook_RedeliveryReexecutesMutation(t *testing.T) {
	service := &fakeSyncer{}
	router := newWebhookRouter(testSecret, service)

	payload := eventPayload(t, "user.deleted", map[string]interface{}{"id": "clerk_4"})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedRequest(t, payload))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Sin dedup por delivery id: la reentrega re-ejecuta la mutación
	assert.Equal(t, []string{"clerk_4", "clerk_4"}, service.deleted)
}
