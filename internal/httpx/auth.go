package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Identity is the verified caller taken from an identity-provider token.
type Identity struct {
	Subject string // external user id
	Email   string
	Name    *string
	Role    string
}

func (id Identity) IsAdmin() bool { return id.Role == "admin" }

type ctxKey struct{}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Auth verifies HS256 bearer tokens. With an empty Secret auth is disabled
// and every route is open.
type Auth struct {
	Secret []byte
	Log    *zap.Logger
}

func (a *Auth) Enabled() bool { return a != nil && len(a.Secret) > 0 }

// Identify attaches the caller identity when a bearer token is present.
// A present but invalid token is rejected.
func (a *Auth) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			writeErr(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}
		id, err := a.parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			a.Log.Debug("token rejected", zap.Error(err))
			writeErr(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (a *Auth) parse(raw string) (Identity, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.Secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, errors.Join(errors.New("invalid token"), err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return Identity{}, errors.New("sub claim missing")
	}
	id := Identity{Subject: sub}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	if name, ok := claims["name"].(string); ok && name != "" {
		id.Name = &name
	}
	return id, nil
}

// RequireAdmin guards admin routes.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeErr(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !id.IsAdmin() {
			writeErr(w, http.StatusForbidden, "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// canActFor reports whether the caller may read or write data of userID.
func (a *Auth) canActFor(r *http.Request, userID string) bool {
	if !a.Enabled() {
		return true
	}
	id, ok := IdentityFrom(r.Context())
	return ok && (id.IsAdmin() || id.Subject == userID)
}

// authorizeUser writes 401/403 and returns false when the caller may not act for userID.
func (a *Auth) authorizeUser(w http.ResponseWriter, r *http.Request, userID string) bool {
	if a.canActFor(r, userID) {
		return true
	}
	if _, ok := IdentityFrom(r.Context()); !ok {
		writeErr(w, http.StatusUnauthorized, "authentication required")
	} else {
		writeErr(w, http.StatusForbidden, "forbidden")
	}
	return false
}

// userParam resolves the target user: the userId query value, or the token
// subject when the query is empty. ok is false when the caller may not act.
func (a *Auth) userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	return a.userParamOr(w, r, "")
}

// userParamOr is userParam with fallback (a body userId) tried before the token subject.
func (a *Auth) userParamOr(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = strings.TrimSpace(fallback)
	}
	if userID == "" {
		if id, ok := IdentityFrom(r.Context()); ok {
			userID = id.Subject
		}
	}
	if userID == "" {
		writeErr(w, http.StatusBadRequest, "missing userId")
		return "", false
	}
	return userID, a.authorizeUser(w, r, userID)
}
