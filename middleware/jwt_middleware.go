// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/nestfire_backend/security"
)

// Context keys set by JWTMiddleware
const (
	ContextClaims = "user"
	ContextUserID = "userId"
)

var errWrongPurpose = errors.New("token is not an access token")

// TokenParser verifies a bearer token and returns its claims
type TokenParser interface {
	Parse(token string) (*security.Claims, error)
}

const bearerLookup = "header:" + echo.HeaderAuthorization + ":Bearer "

// JWTMiddleware accepts only access tokens, read from the Authorization header. Reset
// tokens carry the same signature and are turned away here.
func JWTMiddleware(tokens TokenParser) echo.MiddlewareFunc {
	return jwtMiddleware(tokens, bearerLookup)
}

// WebSocketJWTMiddleware also reads the token from ?token=, since browsers can not set
// headers on a websocket handshake. Mount it on the websocket route only.
func WebSocketJWTMiddleware(tokens TokenParser) echo.MiddlewareFunc {
	return jwtMiddleware(tokens, bearerLookup+",query:token")
}

func jwtMiddleware(tokens TokenParser, lookup string) echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		ContextKey:  ContextClaims,
		TokenLookup: lookup,
		ParseTokenFunc: func(auth string, c echo.Context) (interface{}, error) {
			claims, err := tokens.Parse(auth)
			if err != nil {
				return nil, err
			}
			if claims.Purpose != security.PurposeAccess {
				return nil, errWrongPurpose
			}
			return claims, nil
		},
		SuccessHandler: func(c echo.Context) {
			claims := c.Get(ContextClaims).(*security.Claims)
			if id, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
				c.Set(ContextUserID, id)
			}
		},
		ErrorHandler: func(err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "Please provide valid credentials")
		},
	})
}

// UserIDFromContext returns the authenticated caller
func UserIDFromContext(c echo.Context) (primitive.ObjectID, error) {
	id, ok := c.Get(ContextUserID).(primitive.ObjectID)
	if !ok || id.IsZero() {
		return primitive.NilObjectID, echo.NewHTTPError(http.StatusUnauthorized, "Please provide valid credentials")
	}
	return id, nil
}
