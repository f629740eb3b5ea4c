package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the browser cookie carrying the signed session token.
const CookieName = "dashboard_session"

type contextKey struct{}

// Middleware binds every request to an operator session. The session id is
// carried in an HS256-signed token so it cannot be forged; it grants no
// privileges of its own.
type Middleware struct {
	secretKey []byte
	secure    bool
	now       func() time.Time
}

func NewMiddleware(secret string, secure bool) *Middleware {
	return &Middleware{
		secretKey: []byte(secret),
		secure:    secure,
		now:       time.Now,
	}
}

// Issue signs a token for the session id.
func (m *Middleware) Issue(sessionID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  sessionID,
		IssuedAt: jwt.NewNumericDate(m.now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// Parse validates a token and returns its session id.
func (m *Middleware) Parse(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("token has no session")
	}
	return claims.Subject, nil
}

// Session resolves the session id from the cookie, starting a new session
// when the cookie is missing or does not verify.
func (m *Middleware) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string
		if cookie, err := r.Cookie(CookieName); err == nil {
			id, err := m.Parse(cookie.Value)
			if err != nil {
				slog.Warn("Invalid session token", "error", err)
			}
			sessionID = id
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			token, err := m.Issue(sessionID)
			if err != nil {
				slog.Error("Failed to sign session token", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), contextKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionID returns the session bound to ctx by Session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
