package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/gin-gonic/gin"
)

const subjectKey = "gophauth.subject"

// RequireToken validates the bearer token and stores its subject in the gin
// context. Failing requests are answered and aborted here.
func RequireToken(sessions SessionService, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, http.StatusUnauthorized, msgTokenMissing)
			return
		}

		subject, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Debug(c.Request.Context(), "token rejected", "path", c.Request.URL.Path, "kind", common.ErrorKind(err))
			abortWithSessionError(c, err)
			return
		}

		c.Set(subjectKey, subject)
		c.Next()
	}
}

// SubjectFrom returns the subject stored by RequireToken.
func SubjectFrom(c *gin.Context) (string, bool) {
	s := c.GetString(subjectKey)
	return s, s != ""
}

// bearerToken extracts the token from an "Authorization: Bearer <t>" value.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func requestLogger(logger logging.Logger, obs Observer) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if obs != nil {
			obs.ObserveHTTP(route, status, elapsed)
		}
		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", elapsed,
		)
	}
}
