package services

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/imaging"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/repositories/metadata"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "inventaire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func setToken(t *testing.T, db *sql.DB, token string) {
	t.Helper()
	require.NoError(t, metadata.NewSQLiteRepository(db).SetString(context.Background(), metadata.KeyAccessToken, token))
}

// fakeClient implements client.Client for the service tests. Methods not
// overridden here panic through the nil embedded interface.
type fakeClient struct {
	client.Client

	mu sync.Mutex

	campaigns    []models.Campaign
	campaignsErr error
	// campaignsGate, when set, blocks Campaigns until it is closed.
	campaignsGate chan struct{}
	campaignsIn   chan struct{}
	groups        []client.GroupRow
	locations     []models.Location
	pages         [][]client.ArticleRow
	articlesErr   map[int]error
	remoteScans   []models.ScanRecord
	scansErr      error
	loginToken    string
	loginErr      error
	pingErr       error

	syncScansFn  func(batch []client.ScanPayload) ([]client.SyncResult, error)
	syncImagesFn func(batch []client.ImagePayload) ([]client.SyncResult, error)

	campaignCalls int
	articleCalls  []int
	groupRoles    []string
	scanBatches   [][]client.ScanPayload
	imageBatches  [][]client.ImagePayload
}

func (f *fakeClient) Close() error                   { return nil }
func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeClient) Login(ctx context.Context, username, password string) (string, error) {
	return f.loginToken, f.loginErr
}

func (f *fakeClient) Campaigns(ctx context.Context) ([]models.Campaign, error) {
	f.mu.Lock()
	f.campaignCalls++
	gate, in := f.campaignsGate, f.campaignsIn
	f.mu.Unlock()

	if gate != nil {
		if in != nil {
			close(in)
		}
		<-gate
	}
	return f.campaigns, f.campaignsErr
}

func (f *fakeClient) Groups(ctx context.Context, role string) ([]client.GroupRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupRoles = append(f.groupRoles, role)
	return f.groups, nil
}

func (f *fakeClient) Locations(ctx context.Context) ([]models.Location, error) {
	return f.locations, nil
}

func (f *fakeClient) Articles(ctx context.Context, page, pageSize int) (*client.ArticlePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.articleCalls = append(f.articleCalls, page)
	if err := f.articlesErr[page]; err != nil {
		return nil, err
	}
	p := &client.ArticlePage{Page: page, TotalPages: len(f.pages)}
	if page-1 < len(f.pages) {
		p.Rows = f.pages[page-1]
	}
	return p, nil
}

func (f *fakeClient) Scans(ctx context.Context, campaignID, groupID string) ([]models.ScanRecord, error) {
	return f.remoteScans, f.scansErr
}

func (f *fakeClient) SyncScans(ctx context.Context, batch []client.ScanPayload) ([]client.SyncResult, error) {
	f.mu.Lock()
	f.scanBatches = append(f.scanBatches, batch)
	fn := f.syncScansFn
	f.mu.Unlock()
	if fn != nil {
		return fn(batch)
	}
	return acceptAll(batch), nil
}

func (f *fakeClient) SyncScanImages(ctx context.Context, batch []client.ImagePayload) ([]client.SyncResult, error) {
	f.mu.Lock()
	f.imageBatches = append(f.imageBatches, batch)
	fn := f.syncImagesFn
	f.mu.Unlock()
	if fn != nil {
		return fn(batch)
	}
	res := make([]client.SyncResult, 0, len(batch))
	for _, p := range batch {
		res = append(res, client.SyncResult{LocalID: p.LocalID, Success: true, RemoteID: p.RemoteID})
	}
	return res, nil
}

func acceptAll(batch []client.ScanPayload) []client.SyncResult {
	res := make([]client.SyncResult, 0, len(batch))
	for _, p := range batch {
		res = append(res, client.SyncResult{LocalID: p.LocalID, Success: true, RemoteID: "r-" + p.LocalID})
	}
	return res
}

// fakeCompressor fails for every URI containing "broken".
type fakeCompressor struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeCompressor) CompressAll(ctx context.Context, uris []string) ([]client.ImageData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uris...)
	f.mu.Unlock()

	res := make([]client.ImageData, 0, len(uris))
	for _, u := range uris {
		if strings.Contains(u, "broken") {
			return nil, errors.Join(imaging.ErrImageProcessing, errors.New("decode "+u))
		}
		res = append(res, client.ImageData{Data: "ZmFrZQ==", MimeType: imaging.MimeJPEG, Filename: "x.jpg"})
	}
	return res, nil
}
