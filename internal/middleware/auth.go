package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/studiokit/community-api/pkg/httputil"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

const contextIdentity = "identity"

// Identity is the caller as resolved by the external identity system. The
// core trusts these claims and never re-authenticates.
type Identity struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           string
}

type IdentityMiddleware struct {
	secret []byte
}

func NewIdentityMiddleware(secret string) *IdentityMiddleware {
	return &IdentityMiddleware{secret: []byte(secret)}
}

// Resolve verifies the bearer token and stores the resolved identity in the
// request context. Tokens are minted by the identity service, not here.
func (m *IdentityMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			c.Abort()
			return
		}

		identity, err := m.parse(parts[1])
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			c.Abort()
			return
		}

		c.Set(contextIdentity, identity)
		c.Next()
	}
}

func (m *IdentityMiddleware) parse(token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, err
	}

	orgClaim, _ := claims["org_id"].(string)
	orgID, err := uuid.Parse(orgClaim)
	if err != nil {
		return nil, err
	}

	role, _ := claims["role"].(string)
	return &Identity{UserID: userID, OrganizationID: orgID, Role: role}, nil
}

// IdentityFrom returns the resolved identity set by Resolve.
func IdentityFrom(c *gin.Context) (*Identity, bool) {
	v, ok := c.Get(contextIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*Identity)
	return identity, ok
}
