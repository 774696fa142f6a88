// utils/clientip.go
package utils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP returns the originating client address, preferring the first hop
// of X-Forwarded-For (set by the Gateway) over the socket peer.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if fwd = strings.TrimSpace(fwd); fwd != "" {
			// c.Get returns a string aliasing fasthttp's reusable request
			// buffer; copy it so callers may retain it past the handler.
			return strings.Clone(fwd)
		}
	}
	return c.IP()
}
