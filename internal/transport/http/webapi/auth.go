package webapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	httptransport "pilotforce-server-go/internal/transport/http"

	"pilotforce-server-go/internal/platform/config"
	"pilotforce-server-go/internal/platform/errors"
)

// JWTClaims carries the operator identity inside issued tokens.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates bearer tokens for the web API.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(cfg config.AuthConfig) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New(errors.KindConfig, "auth.new", "jwt secret required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
	}, nil
}

// GenerateJWT issues a signed token for the user.
func (a *Authenticator) GenerateJWT(userID, username, role, companyID string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserID:    userID,
		Username:  username,
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// VerifyJWT parses and validates a token string.
func (a *Authenticator) VerifyJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(*jwt.Token) (interface{}, error) {
			return a.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// Middleware rejects requests without a valid bearer token and stashes the
// caller's identity in the gin context.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			httptransport.RespondError(c, 401, "missing authorization token", nil)
			c.Abort()
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := a.VerifyJWT(token)
		if err != nil {
			httptransport.RespondError(c, 401, "invalid token", nil)
			c.Abort()
			return
		}
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Set("company_id", claims.CompanyID)
		c.Next()
	}
}

// AdminMiddleware restricts a group to administrators. Observers may read
// via GET; every other method needs the admin role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			httptransport.RespondError(c, 401, "not authenticated", nil)
			c.Abort()
			return
		}
		if c.Request.Method == "GET" {
			if role == "admin" || role == "observer" {
				c.Next()
				return
			}
			httptransport.RespondError(c, 403, "admin or observer role required", nil)
			c.Abort()
			return
		}
		if role != "admin" {
			httptransport.RespondError(c, 403, "admin role required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
