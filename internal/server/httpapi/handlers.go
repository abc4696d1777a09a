package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/tokenstore"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Message      string `json:"message"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Message     string `json:"message"`
}

type protectedResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Data    string `json:"data"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	Store        string `json:"store"`
	Timestamp    string `json:"timestamp"`
	AccessTokens *int64 `json:"access_tokens,omitempty"`
}

func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "missing username, email or password"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, messageResponse{Message: "missing username, email or password"})
		return
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, messageResponse{Message: "user already exists"})
		return
	case err != nil:
		h.logger.Error(c.Request.Context(), "register failed", "error", err)
		c.JSON(http.StatusInternalServerError, messageResponse{Message: msgInternal})
		return
	}

	h.logger.Info(c.Request.Context(), "user registered", "user_id", user.ID)
	c.JSON(http.StatusCreated, registerResponse{Message: "user registered successfully", UserID: user.ID})
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "missing username or password"})
		return
	}

	userID, err := h.users.Verify(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, messageResponse{Message: "invalid credentials"})
		return
	case err != nil:
		h.logger.Error(c.Request.Context(), "credential check failed", "error", err)
		c.JSON(http.StatusInternalServerError, messageResponse{Message: msgInternal})
		return
	}

	issued, err := h.sessions.Issue(c.Request.Context(), userID)
	if err != nil {
		writeSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		TokenType:    common.BearerScheme,
		ExpiresIn:    issued.ExpiresIn,
		Message:      "login successful",
	})
}

func (h *handlers) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, messageResponse{Message: "refresh token is missing"})
		return
	}

	res, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeSessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, refreshResponse{
		AccessToken: res.AccessToken,
		TokenType:   common.BearerScheme,
		ExpiresIn:   res.ExpiresIn,
		Message:     "token refreshed successfully",
	})
}

// logout validates the bearer token itself so that a token which was
// already revoked is answered with success.
func (h *handlers) logout(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusUnauthorized, messageResponse{Message: msgTokenMissing})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.sessions.Validate(ctx, token); err != nil {
		if errors.Is(err, common.ErrRevokedOrUnknownToken) {
			c.JSON(http.StatusOK, messageResponse{Message: "already logged out"})
			return
		}
		writeSessionError(c, err)
		return
	}

	revoked, err := h.sessions.Revoke(ctx, token)
	if err != nil {
		writeSessionError(c, err)
		return
	}
	if !revoked {
		c.JSON(http.StatusOK, messageResponse{Message: "already logged out"})
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "logged out successfully"})
}

func (h *handlers) protected(c *gin.Context) {
	subject, _ := SubjectFrom(c)
	h.logger.Info(c.Request.Context(), "protected endpoint accessed", "user_id", subject)
	c.JSON(http.StatusOK, protectedResponse{
		Message: "this is a protected endpoint",
		UserID:  subject,
		Data:    "secret data only for authenticated users",
	})
}

// counter is implemented by stores that can report how many records they
// hold.
type counter interface {
	Count(ctx context.Context, ns tokenstore.Namespace) (int64, error)
}

func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	res := healthResponse{
		Status:    "healthy",
		Database:  "connected",
		Store:     "connected",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.users.Ping(ctx); err != nil {
		h.logger.Error(ctx, "database health check failed", "error", err)
		res.Status, res.Database = "unhealthy", "disconnected"
	}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error(ctx, "token store health check failed", "error", err)
		res.Status, res.Store = "unhealthy", "disconnected"
	} else if cs, ok := h.store.(counter); ok {
		if n, err := cs.Count(ctx, tokenstore.NamespaceAccess); err == nil {
			res.AccessTokens = &n
		}
	}

	status := http.StatusOK
	if res.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}
