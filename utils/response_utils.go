package utils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// RespondWithError sends a JSON error response.
func RespondWithError(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

// RespondWithJSON sends a JSON success response.
func RespondWithJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// FormatValidationErrors flattens validator/v10 errors into readable strings.
func FormatValidationErrors(err error) []string {
	var messages []string
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		if err != nil {
			return []string{err.Error()}
		}
		return nil
	}
	for _, fieldErr := range validationErrs {
		message := fmt.Sprintf("Field '%s' failed on the '%s' tag", fieldErr.Field(), fieldErr.Tag())
		if fieldErr.Param() != "" {
			message = fmt.Sprintf("%s (value: %s)", message, fieldErr.Param())
		}
		messages = append(messages, message)
	}
	return messages
}
