package ingress

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// HashAPIKey returns the hex-encoded SHA-256 digest of key, the form
// it should be stored and compared in.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyMiddleware rejects any request that doesn't present the
// configured key via the X-API-Key header or api_key query
// parameter. There is deliberately no key store, rotation, or
// per-key permission set here — one shared key per instance is all
// the reconfiguration surface needs; a full key-management API is
// out of scope.
func APIKeyMiddleware(expectedHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("X-API-Key")
		if key == "" {
			key = c.Query("api_key")
		}
		if key == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing API key"})
		}

		got := HashAPIKey(key)
		if subtle.ConstantTimeCompare([]byte(got), []byte(expectedHash)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid API key"})
		}

		return c.Next()
	}
}
