package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/rvetrov/flight-fare-search/internal/utils"
)

const anonCookieName = "ffs_anon"

// RequesterIdentity resolves a stable per-requester identity for search
// deduplication and rate limiting, without requiring login. A valid
// bearer token maps to "user:<id>"; everyone else gets a random token
// in a long-lived cookie and maps to "guest:<token>". The identity is
// stored in the context under "requester_id".
func RequesterIdentity(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, ok := userIdentity(c, secret); ok {
				c.Set("requester_id", id)
				return next(c)
			}

			if cookie, err := c.Cookie(anonCookieName); err == nil && cookie.Value != "" {
				c.Set("requester_id", "guest:"+cookie.Value)
				return next(c)
			}

			token, err := utils.RandomHex(16)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			c.SetCookie(&http.Cookie{
				Name:     anonCookieName,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(365 * 24 * time.Hour),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set("requester_id", "guest:"+token)
			return next(c)
		}
	}
}

// userIdentity extracts "user:<sub>" from a valid bearer token if one
// is present. Invalid tokens fall through to the guest path rather than
// failing the request; search does not require auth.
func userIdentity(c echo.Context, secret string) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	// sub is numeric in our tokens; GetSubject only handles strings.
	switch v := claims["sub"].(type) {
	case string:
		if v != "" {
			return "user:" + v, true
		}
	case float64:
		return "user:" + strconv.FormatInt(int64(v), 10), true
	}
	return "", false
}
