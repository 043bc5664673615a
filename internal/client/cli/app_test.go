package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMode_PrintsOnlyOnChange(t *testing.T) {
	env := newTestApp(t)

	env.app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, env.app.currentMode())
	assert.Equal(t, "Switched to online mode\n", env.out.String())

	env.out.Reset()
	env.app.setMode(ModeOnline)
	assert.Empty(t, env.out.String())

	env.app.setMode(ModeOffline)
	assert.Equal(t, "Switched to offline mode\n", env.out.String())
}

func TestGetStatus(t *testing.T) {
	env := newTestApp(t)
	assert.Equal(t, "(offline)", env.app.getStatus())
	assert.False(t, env.app.isLoggedIn())

	env.unlock(t)
	env.app.setMode(ModeOnline)
	assert.Equal(t, "(alice Team A online)", env.app.getStatus())
	assert.True(t, env.app.isLoggedIn())
	assert.True(t, env.app.hasGroup())
}

func TestRestoreSession(t *testing.T) {
	env := newTestApp(t)
	g := models.Group{ID: "G1", Name: "Team A"}
	env.auth.authenticated = true
	env.auth.username = "alice"
	env.auth.unlocked = &g

	env.app.restoreSession(context.Background())

	assert.True(t, env.app.isLoggedIn())
	assert.Equal(t, "G1", env.app.currentGroup().ID)
}

func TestRestoreSession_ExpiredToken(t *testing.T) {
	env := newTestApp(t)
	env.auth.authenticated = false
	env.auth.username = "alice"

	env.app.restoreSession(context.Background())

	assert.False(t, env.app.isLoggedIn())
}

func TestStartOnlineStatusWatcher(t *testing.T) {
	env := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		env.app.StartOnlineStatusWatcher(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return env.app.currentMode() == ModeOnline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestStartOnlineStatusWatcher_ZeroIntervalReturns(t *testing.T) {
	env := newTestApp(t)
	env.app.StartOnlineStatusWatcher(context.Background(), 0)
	assert.Equal(t, ModeOffline, env.app.currentMode())
}

func TestLogin(t *testing.T) {
	stubSecret(t, "s3cret")

	env := newTestApp(t, "alice")
	require.NoError(t, env.app.Login(context.Background()))

	assert.Equal(t, "alice", env.auth.loginUser)
	assert.Equal(t, "s3cret", env.auth.loginPass)
	assert.Equal(t, ModeOnline, env.app.currentMode())
	assert.True(t, env.app.isLoggedIn())
	assert.Contains(t, env.out.String(), "Logged in as alice")
}

func TestLogin_ServerUnavailable(t *testing.T) {
	stubSecret(t, "s3cret")

	env := newTestApp(t, "alice")
	env.app.setMode(ModeOnline)
	env.auth.loginErr = client.ErrUnavailable

	err := env.app.Login(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, ModeOffline, env.app.currentMode())
	assert.False(t, env.app.isLoggedIn())
}

func TestLogout(t *testing.T) {
	env := newTestApp(t)
	env.unlock(t)

	require.NoError(t, env.app.Logout(context.Background()))

	assert.Equal(t, 1, env.auth.logoutCalls)
	assert.False(t, env.app.isLoggedIn())
	assert.False(t, env.app.hasGroup())
}

func TestUnlock(t *testing.T) {
	stubSecret(t, "4321")

	env := newTestApp(t)
	env.auth.unlockGroup = &models.Group{ID: "G1", Name: "Team A", CampaignID: "C1"}

	require.ErrorIs(t, env.app.Unlock(context.Background(), nil), errUsage)

	require.NoError(t, env.app.Unlock(context.Background(), []string{"G1"}))
	assert.Equal(t, "4321", env.auth.unlockPIN)
	assert.Equal(t, "G1", env.app.currentGroup().ID)
	assert.Contains(t, env.out.String(), "Group Team A unlocked")
}

func TestUnlock_WrongPIN(t *testing.T) {
	stubSecret(t, "0000")

	env := newTestApp(t)
	env.auth.unlockErr = errors.New("invalid PIN")

	require.Error(t, env.app.Unlock(context.Background(), []string{"G1"}))
	assert.False(t, env.app.hasGroup())
}
