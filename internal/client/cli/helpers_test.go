package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/config"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/services"
	"github.com/dmitrijs2005/inventaire/internal/logging"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func testSnapshot() models.Snapshot {
	building := models.Location{ID: "B1", Name: "Building", Barcode: "BLD-1"}
	office := models.Location{ID: "L1", Name: "Office 101", Barcode: "LOC-1", Parent: &models.LocationRef{ID: "B1", Name: "Building"}}
	store := models.Location{ID: "L2", Name: "Storage", Barcode: "LOC-2", Parent: &models.LocationRef{ID: "B1", Name: "Building"}}
	return models.Snapshot{
		Campaigns: []models.Campaign{{ID: "C1", Code: "INV26", Name: "Inventory 2026"}},
		Groups: []models.Group{{
			ID: "G1", Name: "Team A", CampaignID: "C1",
			User:      models.UserRef{ID: "U1", Username: "alice"},
			Locations: []models.Location{office},
		}},
		Locations: []models.Location{building, office, store},
		Articles: []models.Article{{
			ID: "A1", Code: "A100", Description: "Desk",
			Locations: []models.LocationRef{{ID: "L1", Name: "Office 101"}},
		}},
		LastSyncAt: &fixedNow,
	}
}

type testEnv struct {
	app   *App
	out   *bytes.Buffer
	auth  *fakeAuth
	sync  *fakeSync
	recap *fakeRecap
	store services.ScanStore
}

// newTestApp builds an App over a real SQLite store and reference cache with
// fake network-facing services. input feeds the interactive prompts.
func newTestApp(t *testing.T, input ...string) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "cli.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := services.NewReferenceCache(db)
	require.NoError(t, cache.Replace(ctx, testSnapshot()))

	store := services.NewScanStore(db, cache)
	out := &bytes.Buffer{}
	env := &testEnv{
		out:   out,
		auth:  &fakeAuth{},
		sync:  &fakeSync{},
		recap: &fakeRecap{},
		store: store,
	}
	env.app = &App{
		config:       &config.Config{},
		cache:        cache,
		authService:  env.auth,
		syncService:  env.sync,
		scanStore:    store,
		recapService: env.recap,
		log:          logging.Discard(),
		reader:       bufio.NewReader(strings.NewReader(strings.Join(input, "\n") + "\n")),
		out:          out,
		now:          func() time.Time { return fixedNow },
		mode:         ModeOffline,
	}
	return env
}

func (e *testEnv) unlock(t *testing.T) *models.Group {
	t.Helper()
	g, ok := e.app.cache.Group("G1")
	require.True(t, ok)
	e.app.setSession("alice", &g)
	return &g
}

func stubSecret(t *testing.T, secret string) {
	t.Helper()
	orig := getSecret
	getSecret = func(string, io.Writer) ([]byte, error) {
		return []byte(secret), nil
	}
	t.Cleanup(func() { getSecret = orig })
}

type fakeAuth struct {
	mu sync.Mutex

	loginUser string
	loginPass string
	loginErr  error

	logoutCalls int

	unlockPIN   string
	unlockGroup *models.Group
	unlockErr   error

	authenticated bool
	username      string
	unlocked      *models.Group

	pingErr   error
	pingCalls int
}

func (f *fakeAuth) Login(_ context.Context, username, password string) error {
	f.loginUser, f.loginPass = username, password
	return f.loginErr
}
func (f *fakeAuth) Logout(context.Context) error { f.logoutCalls++; return nil }
func (f *fakeAuth) SetToken(context.Context, string, string) error {
	return nil
}
func (f *fakeAuth) IsAuthenticated(context.Context) (bool, error) { return f.authenticated, nil }
func (f *fakeAuth) Username(context.Context) (string, error)      { return f.username, nil }
func (f *fakeAuth) UnlockGroup(_ context.Context, _ string, pin string) (*models.Group, error) {
	f.unlockPIN = pin
	return f.unlockGroup, f.unlockErr
}
func (f *fakeAuth) UnlockedGroup(context.Context) (*models.Group, error) { return f.unlocked, nil }
func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCalls++
	return f.pingErr
}
func (f *fakeAuth) Close(context.Context) error { return nil }

type retryCall struct {
	id            string
	includeImages bool
}

type fakeSync struct {
	syncAllErr  error
	syncAllRuns int
	summary     *models.SyncSummary
	err         error
	retries     []retryCall
	repairs     []string
	syncing     bool
}

func (f *fakeSync) SyncAll(context.Context) error { f.syncAllRuns++; return f.syncAllErr }
func (f *fakeSync) SyncScans(context.Context) (*models.SyncSummary, error) {
	return f.summary, f.err
}
func (f *fakeSync) SyncScanByID(_ context.Context, id string, includeImages bool) (*models.SyncSummary, error) {
	f.retries = append(f.retries, retryCall{id, includeImages})
	return f.summary, f.err
}
func (f *fakeSync) SyncScanImageByID(_ context.Context, id string) (*models.SyncSummary, error) {
	f.repairs = append(f.repairs, id)
	return f.summary, f.err
}
func (f *fakeSync) IsSyncing() bool     { return f.syncing }
func (f *fakeSync) IsScanSyncing() bool { return f.syncing }

type fakeRecap struct {
	recap *services.Recap
	err   error
	opts  []services.RecapOptions
}

func (f *fakeRecap) Build(_ context.Context, _, _ string, opts services.RecapOptions) (*services.Recap, error) {
	f.opts = append(f.opts, opts)
	return f.recap, f.err
}
