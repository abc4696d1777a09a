// Package cli implements the gophauth command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

// API is the gateway surface used by the commands.
type API interface {
	Register(ctx context.Context, username, email string, password []byte) (string, error)
	Login(ctx context.Context, username string, password []byte) (*client.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*client.RefreshResult, error)
	Logout(ctx context.Context, accessToken string) (string, error)
	WhoAmI(ctx context.Context, accessToken string) (*client.Identity, error)
}

// TokenStore keeps the session between runs.
type TokenStore interface {
	Load() (*client.Tokens, error)
	Save(t *client.Tokens) error
	Remove() error
}

type App struct {
	api    API
	tokens TokenStore
	prompt *prompter
	out    io.Writer
	now    func() time.Time
}

func NewApp(cfg *config.Config) *App {
	p := newTerminalPrompter()
	return &App{
		api:    client.New(cfg.ServerURL, cfg.Timeout),
		tokens: client.NewTokenFile(cfg.TokenFile),
		prompt: p,
		out:    p.out,
		now:    time.Now,
	}
}

const usage = `usage: client [-a url] [-f token-file] [-t seconds] <command>

commands:
  register [username]   create an account
  login [username]      log in and store the tokens
  refresh               exchange the refresh token for a new access token
  logout                revoke the session and forget the tokens
  whoami                show the logged-in user id
`

// ErrUsage is returned for an unknown or missing command.
var ErrUsage = errors.New("invalid usage")

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.Register(ctx, rest)
	case "login":
		return a.Login(ctx, rest)
	case "refresh":
		return a.Refresh(ctx)
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "unknown command %q\n\n%s", cmd, usage)
		return ErrUsage
	}
}
