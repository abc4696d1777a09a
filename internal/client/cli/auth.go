package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

func (a *App) username(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return a.prompt.Line("Username")
}

// Register prompts for the missing account fields and creates the user.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context, args []string) error {
	userName, err := a.username(args)
	if err != nil {
		return err
	}
	email, err := a.prompt.Line("Email")
	if err != nil {
		return err
	}
	password, err := a.prompt.Password()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.api.Register(ctx, userName, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s (%s)\n", userName, id)
	return nil
}

// Login authenticates and stores the issued token pair.
func (a *App) Login(ctx context.Context, args []string) error {
	userName, err := a.username(args)
	if err != nil {
		return err
	}
	password, err := a.prompt.Password()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	t := &client.Tokens{
		Username:        userName,
		AccessToken:     res.AccessToken,
		RefreshToken:    res.RefreshToken,
		AccessExpiresAt: a.expiresAt(res.ExpiresIn),
	}
	if err := a.tokens.Save(t); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", userName)
	return nil
}

func (a *App) expiresAt(expiresIn int64) time.Time {
	return a.now().Add(time.Duration(expiresIn) * time.Second).UTC()
}

// Refresh replaces the stored access token.
func (a *App) Refresh(ctx context.Context) error {
	t, err := a.tokens.Load()
	if err != nil {
		return err
	}
	if err := a.refresh(ctx, t); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "token refreshed")
	return nil
}

func (a *App) refresh(ctx context.Context, t *client.Tokens) error {
	if t.RefreshToken == "" {
		return client.ErrNotLoggedIn
	}
	res, err := a.api.Refresh(ctx, t.RefreshToken)
	if err != nil {
		return err
	}
	t.AccessToken = res.AccessToken
	t.AccessExpiresAt = a.expiresAt(res.ExpiresIn)
	return a.tokens.Save(t)
}

// Logout revokes the session on the server and forgets the tokens. The
// local file is kept only when the server could not be reached.
func (a *App) Logout(ctx context.Context) error {
	t, err := a.tokens.Load()
	if err != nil {
		return err
	}

	msg, err := a.api.Logout(ctx, t.AccessToken)
	if err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			return err
		}
		msg = "session already ended on the server"
	}
	if err := a.tokens.Remove(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

// WhoAmI prints the subject of the stored session, refreshing once when
// the access token has expired or been rejected.
func (a *App) WhoAmI(ctx context.Context) error {
	t, err := a.tokens.Load()
	if err != nil {
		return err
	}

	if !t.AccessExpiresAt.IsZero() && !a.now().Before(t.AccessExpiresAt) {
		if err := a.refresh(ctx, t); err != nil {
			return err
		}
	}

	me, err := a.api.WhoAmI(ctx, t.AccessToken)
	if errors.Is(err, client.ErrUnauthorized) {
		if rerr := a.refresh(ctx, t); rerr != nil {
			return rerr
		}
		me, err = a.api.WhoAmI(ctx, t.AccessToken)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", t.Username, me.UserID)
	return nil
}
