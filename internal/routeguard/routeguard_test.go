package routeguard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPattern_Match(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/", "/", true},
		{"/", "/events", false},
		{"/events/:id", "/events/123", true},
		{"/events/:id", "/events/123/edit", false},
		{"/events/:id", "/events", false},
		{"/api/webhook/clerk", "/api/webhook/clerk", true},
		{"/api/webhook/clerk", "/api/webhook/clerk/extra", false},
		{"/api/*", "/api/webhook/clerk", true},
		{"/api/*", "/api", true},
		{"/api/*", "/health", false},
	}

	for _, tc := range cases {
		got := CompilePattern(tc.pattern).Match(tc.path)
		assert.Equal(t, tc.want, got, "pattern %q vs path %q", tc.pattern, tc.path)
	}
}

func TestClassifier_DefaultRoutes(t *testing.T) {
	c := NewClassifier(DefaultPublicRoutes(), DefaultIgnoredRoutes())

	assert.Equal(t, ClassPublic, c.Classify("/"))
	assert.Equal(t, ClassPublic, c.Classify("/events/123"))
	assert.Equal(t, ClassProtected, c.Classify("/profile"))
	assert.Equal(t, ClassProtected, c.Classify("/checkout"))
	assert.Equal(t, ClassProtected, c.Classify("/events/123/orders"))

	// Ignorada gana a pública aunque el path aparezca en ambas listas
	assert.Equal(t, ClassIgnored, c.Classify("/api/webhook/clerk"))
	assert.Equal(t, ClassIgnored, c.Classify("/api/uploadthing"))
	assert.Equal(t, ClassIgnored, c.Classify("/sign-in"))
}

func TestClassifier_PrecedenceIsOrderIndependent(t *testing.T) {
	a := NewClassifier([]string{"/ruta"}, []string{"/ruta"})
	b := NewClassifier([]string{"/ruta"}, []string{"/ruta"})

	assert.Equal(t, ClassIgnored, a.Classify("/ruta"))
	assert.Equal(t, a.Classify("/ruta"), b.Classify("/ruta"))
}

// ---------------- Middleware ----------------

type staticVerifier struct {
	session *Session
	err     error
}

func (v *staticVerifier) Verify(ctx context.Context, token string) (*Session, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.session, nil
}

func newGuardedRouter(verifier SessionVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	classifier := NewClassifier(DefaultPublicRoutes(), DefaultIgnoredRoutes())
	router.Use(Middleware(classifier, verifier, "/sign-in", zap.NewNop()))

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }
	router.GET("/", ok)
	router.GET("/events/:id", ok)
	router.GET("/profile", ok)
	router.POST("/api/webhook/clerk", ok)
	return router
}

func perform(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddleware_PublicRouteWithoutSession(t *testing.T) {
	router := newGuardedRouter(&staticVerifier{})

	w := perform(router, http.MethodGet, "/events/123", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_ProtectedRouteRedirectsWithoutSession(t *testing.T) {
	router := newGuardedRouter(&staticVerifier{})

	w := perform(router, http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))
}

func TestMiddleware_ProtectedRouteWithBearerSession(t *testing.T) {
	verifier := &staticVerifier{session: &Session{UserID: "clerk_1"}}
	router := newGuardedRouter(verifier)

	w := perform(router, http.MethodGet, "/profile", map[string]string{
		"Authorization": "Bearer token-valido",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_ProtectedRouteWithInvalidToken(t *testing.T) {
	verifier := &staticVerifier{err: errors.New("expired")}
	router := newGuardedRouter(verifier)

	w := perform(router, http.MethodGet, "/profile", map[string]string{
		"Authorization": "Bearer token-caducado",
	})
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestMiddleware_IgnoredRouteSkipsVerification(t *testing.T) {
	// Verifier que fallaría si se le consultase
	verifier := &staticVerifier{err: errors.New("must not be called")}
	router := newGuardedRouter(verifier)

	w := perform(router, http.MethodPost, "/api/webhook/clerk", map[string]string{
		"Authorization": "Bearer lo-que-sea",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware_NilVerifierProtectsEverything(t *testing.T) {
	router := newGuardedRouter(nil)

	w := perform(router, http.MethodGet, "/profile", map[string]string{
		"Authorization": "Bearer token",
	})
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestSessionFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	classifier := NewClassifier(nil, nil)
	verifier := &staticVerifier{session: &Session{UserID: "clerk_9"}}
	router.Use(Middleware(classifier, verifier, "/sign-in", zap.NewNop()))

	router.GET("/whoami", func(c *gin.Context) {
		session, ok := SessionFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": session.UserID})
	})

	w := perform(router, http.MethodGet, "/whoami", map[string]string{
		"Authorization": "Bearer token",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clerk_9")
}
