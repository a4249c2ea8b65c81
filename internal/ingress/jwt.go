package ingress

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the optional bearer-token check, for scripted
// or cluster callers that would rather not carry a static API key.
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// claims is intentionally minimal: this gate answers "is the caller
// who they say they are", not "what may they do" — there are no
// roles, since the only thing behind it is one settings-patch
// endpoint.
type claims struct {
	Issuer string `json:"iss"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates a bearer token against cfg, layered in
// front of or instead of APIKeyMiddleware.
func JWTMiddleware(cfg JWTConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == "" || tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing bearer token"})
		}

		token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SecretKey), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}

		return c.Next()
	}
}

// GenerateToken issues a bearer token for cluster callers, valid for ttl.
func GenerateToken(cfg JWTConfig, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Issuer: cfg.Issuer,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    cfg.Issuer,
		},
	})
	return token.SignedString([]byte(cfg.SecretKey))
}
