package models

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the uniform REST response body.
// Status is "success" for 2xx, "fail" for 4xx, "error" for 5xx.
type Envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// PageEnvelope extends Envelope with pagination fields.
type PageEnvelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
	HasMore bool        `json:"has_more"`
}

// RespondSuccess writes a success envelope with the given HTTP status.
func RespondSuccess(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(Envelope{Status: "success", Data: data})
}

// RespondPage writes a success envelope with pagination metadata.
func RespondPage(c *fiber.Ctx, data interface{}, page, limit int, hasMore bool) error {
	return c.JSON(PageEnvelope{
		Status:  "success",
		Data:    data,
		Page:    page,
		Limit:   limit,
		HasMore: hasMore,
	})
}

// RespondWithError translates an error into the envelope. AppError codes map
// to HTTP statuses; anything else is an internal error. Internal error
// details never reach the client.
func RespondWithError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeValidation:
			status = fiber.StatusBadRequest
		case CodeUnauthenticated:
			status = fiber.StatusUnauthorized
		case CodeForbidden:
			status = fiber.StatusForbidden
		case CodeNotFound:
			status = fiber.StatusNotFound
		case CodeConflict:
			status = fiber.StatusConflict
		default:
			status = fiber.StatusInternalServerError
		}
		if appErr.Code != CodeInternal {
			message = appErr.Message
		}
	}

	envStatus := "error"
	if status < fiber.StatusInternalServerError {
		envStatus = "fail"
	}

	return c.Status(status).JSON(Envelope{Status: envStatus, Message: message})
}
