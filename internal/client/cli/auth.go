package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
)

// Login prompts for credentials and opens an API session. The token is kept
// in the local database so the session survives restarts.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getSecret("Enter password", a.out)
	if err != nil {
		return err
	}
	defer wipe(password)

	if err := a.authService.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		a.log.Warn(ctx, "login failed", "user", userName, "error", err)
		return err
	}

	a.setMode(ModeOnline)
	a.setSession(userName, a.currentGroup())
	a.printf("Logged in as %s\n", userName)
	return nil
}

// Logout drops the stored token and the unlocked group. Captured scans and
// reference data stay on the device.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setSession("", nil)
	a.printf("Logged out\n")
	return nil
}

// Unlock selects the counting group scans are captured for. It works offline
// against the PIN hash cached by the last full sync.
func (a *App) Unlock(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("unlock <group id>")
	}

	pin, err := getSecret("Enter group PIN", a.out)
	if err != nil {
		return err
	}
	defer wipe(pin)

	g, err := a.authService.UnlockGroup(ctx, args[0], string(pin))
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.group = g
	a.mu.Unlock()

	a.printf("Group %s unlocked (campaign %s, %d locations)\n", g.Name, g.CampaignID, len(g.Locations))
	return nil
}
