package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/evetools/indy/internal/apperror"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError maps the error taxonomy onto a status code and a stable
// machine-readable envelope.
func RespondError(c *gin.Context, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	status := apperror.HTTPStatus(err)
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    http.StatusText(status),
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
