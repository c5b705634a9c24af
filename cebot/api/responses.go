package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Response is the envelope of every API reply.
type Response struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sendSuccess(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusOK).JSON(Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func sendError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Response{
		Error:     &Error{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}

func sendNotFound(c *fiber.Ctx, message string) error {
	return sendError(c, fiber.StatusNotFound, "NOT_FOUND", message)
}

// errorHandler renders unhandled errors in the response envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return sendError(c, code, "ERROR", message)
}
