package middleware

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
)

// userIDKey is the Locals key under which handlers expose the acting
// user (e.g. the Telegram user ID) for auditing.
const userIDKey = "audit_user_id"

// SetUserID tags the current request with an acting user for the audit
// trail.
func SetUserID(c fiber.Ctx, userID string) {
	c.Locals(userIDKey, userID)
}

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(userID, action, resource, details, ip, userAgent string) error
}

// AuditMiddleware logs every request for operational review. A nil
// writer disables persistence.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		if writer == nil {
			return c.Next()
		}

		start := time.Now()

		// Capture request data before handler execution (Fiber reuses
		// context objects).
		method := c.Method()
		path := c.Path()
		ip := c.IP()
		userAgent := c.Get("User-Agent")

		err := c.Next()

		userID := "anonymous"
		if v, ok := c.Locals(userIDKey).(string); ok && v != "" {
			userID = v
		}

		details := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      c.Response().StatusCode(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		detailsJSON, _ := json.Marshal(details)

		// Write asynchronously; all values are captured above.
		go func() {
			if writeErr := writer.WriteAudit(
				userID, "http_request", path, string(detailsJSON), ip, userAgent,
			); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}
