package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/config"
	"github.com/dmitrijs2005/inventaire/internal/client/imaging"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/services"
	"github.com/dmitrijs2005/inventaire/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// referenceReader is the read side of services.ReferenceCache used by the
// commands.
type referenceReader interface {
	Snapshot() models.Snapshot
	LastSyncAt() *time.Time
	Children(parentID string) []models.Location
	Location(id string) (models.Location, bool)
	LocationByBarcode(code string) (models.Location, bool)
	Group(id string) (models.Group, bool)
	GroupsForCampaign(campaignID string) []models.Group
}

type App struct {
	config       *config.Config
	cache        referenceReader
	authService  services.AuthService
	syncService  services.SyncService
	scanStore    services.ScanStore
	recapService services.RecapService
	log          logging.Logger

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu       sync.Mutex
	mode     Mode
	userName string
	group    *models.Group

	closers []io.Closer
}

// NewApp opens the local database, loads the cached reference data and wires
// the services against the configured GraphQL endpoint.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	log, logCloser := logging.NewFileLogger(c.LogFile, c.SlogLevel())

	cache := services.NewReferenceCache(db)
	if _, err := cache.Load(ctx); err != nil {
		_ = logCloser.Close()
		_ = db.Close()
		return nil, err
	}

	tokens := services.NewTokenStore(db)
	apiClient := client.NewGraphQLClient(c.APIEndpoint, tokens, c.RequestTimeout)

	router := imaging.NewRouter(imaging.FileSource{})
	if c.S3Endpoint != "" {
		s3src, err := imaging.NewS3Source(ctx, c.S3Config())
		if err != nil {
			_ = logCloser.Close()
			_ = db.Close()
			return nil, err
		}
		router.Handle("s3", s3src)
	}
	compressor := imaging.NewCompressor(router, c.ImageQuality)

	store := services.NewScanStore(db, cache)

	a := &App{
		config:       c,
		cache:        cache,
		authService:  services.NewAuthService(apiClient, db, tokens, cache),
		syncService:  services.NewSyncService(apiClient, cache, store, compressor, tokens, log, c.SyncConfig()),
		scanStore:    store,
		recapService: services.NewRecapService(apiClient, cache, store, log),
		log:          log.With("component", "cli"),
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		now:          time.Now,
		mode:         ModeOffline,
		closers:      []io.Closer{logCloser, dbCloser{db}},
	}
	return a, nil
}

type dbCloser struct{ db *sql.DB }

func (c dbCloser) Close() error { return c.db.Close() }

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.printf("Switched to %s mode\n", mode)
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userName != ""
}

func (a *App) hasGroup() bool {
	return a.currentGroup() != nil
}

func (a *App) currentGroup() *models.Group {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.group
}

func (a *App) setSession(userName string, group *models.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userName = userName
	a.group = group
}

// restoreSession picks up the user and group persisted by a previous run.
func (a *App) restoreSession(ctx context.Context) {
	var userName string
	if ok, err := a.authService.IsAuthenticated(ctx); err == nil && ok {
		userName, _ = a.authService.Username(ctx)
	}
	g, err := a.authService.UnlockedGroup(ctx)
	if err != nil {
		a.log.Warn(ctx, "restore unlocked group", "error", err)
	}
	a.setSession(userName, g)
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.group != nil {
		s += a.group.Name + " "
	}
	s += string(a.mode)
	return fmt.Sprintf("(%s)", s)
}

// Run restores the previous session, starts the connectivity watcher and
// blocks in the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.restoreSession(ctx)
	if a.cache.LastSyncAt() == nil {
		a.printf("No reference data yet, run 'syncall' once online.\n")
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	a.printf("Welcome to inventaire (type 'help' for commands)\n")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close(ctx context.Context) {
	if err := a.authService.Close(ctx); err != nil {
		a.log.Warn(ctx, "close api client", "error", err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// connectivity mode accordingly. It returns when ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
