package response

import (
	"net/http"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

// Envelope is the JSON body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Accepted writes a 202 response, used when the outcome is still pending.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Envelope{Success: true, Data: data})
}

// BadRequest writes a 400 response for malformed input.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{Code: string(apperror.KindValidation), Message: message},
	})
}

// Error maps err to a status code and writes it. Unknown errors become 500
// without leaking their text.
func Error(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Envelope{
			Error: &ErrorBody{Code: string(apperror.KindInternal), Message: "internal server error"},
		})
		return
	}
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(appErr.HTTPStatus(), Envelope{
		Error: &ErrorBody{
			Code:      string(appErr.Kind),
			Message:   appErr.Message,
			Retryable: appErr.Retryable(),
			Details:   appErr.Details,
		},
	})
}
