package middleware

import (
	"github.com/financialapp/account-service/shared/errs"
	"github.com/gin-gonic/gin"
)

type BadRequestErrorResponse struct {
	Message string            `json:"message"`
	Details []errs.FieldError `json:"details"`
}

func RespondWithValidationError(c *gin.Context, code int, validationErrors *errs.ValidationErrors, extra gin.H) {
	body := gin.H{
		"message": "Invalid request data",
		"details": validationErrors.Fields,
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"message": message,
	})
}
