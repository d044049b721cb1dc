// internal/pkg/response/response.go
package response

import (
	"errors"
	"net/http"

	xerrors "duka-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers in the chain do not run.
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError maps application errors to a status code. Unknown errors become a
// generic 500 without leaking the cause.
func FromError(c *gin.Context, err error, fallback string) {
	message := xerrors.PublicMessage(err, fallback)

	switch {
	case errors.Is(err, xerrors.ErrInvalidInput):
		Error(c, http.StatusBadRequest, message, nil)
	case errors.Is(err, xerrors.ErrNotFound):
		Error(c, http.StatusNotFound, message, nil)
	case errors.Is(err, xerrors.ErrNoShop):
		Error(c, http.StatusNotFound, message, nil)
	case errors.Is(err, xerrors.ErrUnauthorized):
		Error(c, http.StatusUnauthorized, message, nil)
	case errors.Is(err, xerrors.ErrForbidden):
		Error(c, http.StatusForbidden, message, nil)
	case errors.Is(err, xerrors.ErrConflict):
		Error(c, http.StatusConflict, message, nil)
	case errors.Is(err, xerrors.ErrPaymentRequired):
		Error(c, http.StatusPaymentRequired, message, nil)
	case errors.Is(err, xerrors.ErrGateway):
		Error(c, http.StatusBadGateway, message, nil)
	default:
		Error(c, http.StatusInternalServerError, fallback, nil)
	}
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// PaymentRequired sends a 402 with the page the caller should visit to upgrade.
func PaymentRequired(c *gin.Context, message, redirectTo string) {
	Error(c, http.StatusPaymentRequired, message, nil, gin.H{"redirect_to": redirectTo})
}
