package middleware

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logging logs method, path, status and latency of every request.
func Logging() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// On error the error handler has not written the status yet.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		log.Printf("[HTTP] %s %s -> %d (%s)", c.Method(), c.OriginalURL(), status, time.Since(start).Round(time.Microsecond))
		return err
	}
}
