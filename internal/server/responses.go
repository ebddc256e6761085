package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mediarelay/internal/extract"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

const codeBusy = "busy"

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: c.GetString(requestIDKey),
	})
}

// probeStatus maps a probe failure to its HTTP status.
func probeStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrProtected):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// streamStatus maps a stream failure that happened before any byte was sent.
// An extractor failure there is an upstream problem, hence 502.
func streamStatus(err error) int {
	switch {
	case errors.Is(err, extract.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrProtected):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// handleError writes the client-safe form of err.
func handleError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	code := extract.KindOf(err).String()
	writeError(c, status, code, extract.PublicMessage(err))
}
