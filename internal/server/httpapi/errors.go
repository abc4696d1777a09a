package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/gin-gonic/gin"
)

const (
	msgTokenMissing     = "token is missing"
	msgUnauthorized     = "unauthorized"
	msgInvalidTokenType = "invalid token type"
	msgUnavailable      = "service temporarily unavailable"
	msgInternal         = "internal error"

	// retryAfterSeconds is sent with every 503.
	retryAfterSeconds = "1"
)

type messageResponse struct {
	Message string `json:"message"`
}

// sessionStatus maps a session error to a status code and a public message.
// Token failures other than a wrong type collapse into one message.
func sessionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	case errors.Is(err, common.ErrWrongTokenType):
		return http.StatusUnauthorized, msgInvalidTokenType
	case common.IsAuthFailure(err):
		return http.StatusUnauthorized, msgUnauthorized
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func writeSessionError(c *gin.Context, err error) {
	status, msg := sessionStatus(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.JSON(status, messageResponse{Message: msg})
}

func abortWithSessionError(c *gin.Context, err error) {
	writeSessionError(c, err)
	c.Abort()
}

func abortWith(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, messageResponse{Message: msg})
}
