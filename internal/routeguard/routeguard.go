// Package routeguard clasifica rutas en públicas, ignoradas y protegidas, y
// expone un middleware gin que exige sesión en las protegidas.
package routeguard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Class es la clase de acceso de una ruta.
type Class int

const (
	// ClassProtected exige sesión válida (es la clase por defecto).
	ClassProtected Class = iota
	// ClassPublic se sirve sin sesión, pero la sesión se resuelve si llega.
	ClassPublic
	// ClassIgnored queda totalmente fuera del guardia: ni se resuelve sesión.
	ClassIgnored
)

// Pattern es un patrón de ruta compilado. Soporta segmentos literales,
// segmentos parámetro (":id") y un comodín final ("/*").
type Pattern struct {
	segments []string
	wildcard bool
}

// CompilePattern separa el patrón en segmentos. Un "/*" final hace match de
// cualquier resto de ruta.
func CompilePattern(raw string) Pattern {
	raw = strings.TrimSuffix(raw, "/")
	wildcard := strings.HasSuffix(raw, "/*")
	if wildcard {
		raw = strings.TrimSuffix(raw, "/*")
	}

	trimmed := strings.Trim(raw, "/")
	var segments []string
	if trimmed != "" {
		segments = strings.Split(trimmed, "/")
	}

	return Pattern{segments: segments, wildcard: wildcard}
}

// Match comprueba si un path concreto encaja en el patrón.
func (p Pattern) Match(path string) bool {
	trimmed := strings.Trim(path, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	if p.wildcard {
		if len(parts) < len(p.segments) {
			return false
		}
	} else if len(parts) != len(p.segments) {
		return false
	}

	for i, seg := range p.segments {
		if strings.HasPrefix(seg, ":") {
			// Segmento parámetro: encaja con cualquier valor no vacío.
			if parts[i] == "" {
				return false
			}
			continue
		}
		if seg != parts[i] {
			return false
		}
	}

	return true
}

// Classifier resuelve la clase de acceso de cada path entrante.
type Classifier struct {
	public  []Pattern
	ignored []Pattern
}

// NewClassifier compila las listas de rutas públicas e ignoradas. Todo lo que
// no encaje en ninguna es protegido.
func NewClassifier(public, ignored []string) *Classifier {
	c := &Classifier{}
	for _, raw := range public {
		c.public = append(c.public, CompilePattern(raw))
	}
	for _, raw := range ignored {
		c.ignored = append(c.ignored, CompilePattern(raw))
	}
	return c
}

// Classify devuelve la clase del path. Ignorada gana a pública y pública gana
// a protegida, con independencia del orden de las listas.
func (c *Classifier) Classify(path string) Class {
	for _, p := range c.ignored {
		if p.Match(path) {
			return ClassIgnored
		}
	}
	for _, p := range c.public {
		if p.Match(path) {
			return ClassPublic
		}
	}
	return ClassProtected
}

// DefaultPublicRoutes son las rutas navegables sin sesión.
func DefaultPublicRoutes() []string {
	return []string{
		"/",
		"/events/:id",
		"/api/uploadthing",
		"/api/webhook/clerk",
	}
}

// DefaultIgnoredRoutes quedan fuera del guardia por completo: el webhook trae
// su propia autenticación por firma y el sign-in no puede exigirse a sí mismo.
func DefaultIgnoredRoutes() []string {
	return []string{
		"/sign-in",
		"/api/uploadthing",
		"/api/webhook/clerk",
	}
}

// sessionKey es la clave del contexto gin donde se deja la sesión resuelta.
const sessionKey = "routeguard.session"

// SessionFromContext recupera la sesión resuelta por el middleware, si la hay.
func SessionFromContext(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Session)
	return s, ok
}

// Middleware devuelve el guardia gin. En rutas ignoradas no toca nada; en
// públicas resuelve la sesión si llega pero nunca corta; en protegidas, sin
// sesión válida redirige a signInURL.
func Middleware(classifier *Classifier, verifier SessionVerifier, signInURL string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		class := classifier.Classify(c.Request.URL.Path)
		if class == ClassIgnored {
			c.Next()
			return
		}

		session, err := resolveSession(c, verifier)
		if session != nil {
			c.Set(sessionKey, session)
		}

		if class == ClassProtected && session == nil {
			if err != nil {
				log.Debug("Session verification failed",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
			}
			c.Redirect(http.StatusTemporaryRedirect, signInURL)
			c.Abort()
			return
		}

		c.Next()
	}
}

// resolveSession extrae el token de la cookie "__session" o de la cabecera
// Authorization y lo verifica. Sin token devuelve (nil, nil).
func resolveSession(c *gin.Context, verifier SessionVerifier) (*Session, error) {
	token := ""
	if cookie, err := c.Cookie("__session"); err == nil && cookie != "" {
		token = cookie
	} else if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		token = strings.TrimPrefix(auth, "Bearer ")
	}

	if token == "" || verifier == nil {
		return nil, nil
	}

	session, err := verifier.Verify(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	return session, nil
}
