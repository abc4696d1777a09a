// Package client talks to the gophauth HTTP gateway and keeps the issued
// tokens in a local file.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Client is a thin JSON client for the gateway endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type message struct {
	Message string `json:"message"`
}

// LoginResult is the token pair returned by /login.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshResult is the access token returned by /refresh.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Identity is what /protected reports about the caller.
type Identity struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
}

func (c *Client) Register(ctx context.Context, username, email string, password []byte) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	body := map[string]string{"username": username, "email": email, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/register", body, "", &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

func (c *Client) Login(ctx context.Context, username string, password []byte) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/login", body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	var out RefreshResult
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/refresh", body, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the session of accessToken and returns the server message.
func (c *Client) Logout(ctx context.Context, accessToken string) (string, error) {
	var out message
	if err := c.do(ctx, http.MethodPost, "/logout", nil, accessToken, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) WhoAmI(ctx context.Context, accessToken string) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodGet, "/protected", nil, accessToken, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, token string, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		var m message
		_ = json.Unmarshal(raw, &m)
		return statusError(resp.StatusCode, m.Message)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func statusError(code int, msg string) error {
	if msg == "" {
		msg = http.StatusText(code)
	}
	var kind error
	switch code {
	case http.StatusUnauthorized:
		kind = ErrUnauthorized
	case http.StatusBadRequest:
		kind = ErrBadRequest
	case http.StatusConflict:
		kind = ErrConflict
	case http.StatusServiceUnavailable:
		kind = ErrUnavailable
	default:
		return fmt.Errorf("server error %d: %s", code, msg)
	}
	return fmt.Errorf("%w: %s", kind, msg)
}
