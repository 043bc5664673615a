package services

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/recap"
	"github.com/dmitrijs2005/inventaire/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/inventaire/internal/client/repositories/reference"
	"github.com/dmitrijs2005/inventaire/internal/dbx"
)

// ReferenceCache is the offline copy of the reference dataset. The durable
// copy lives in SQLite; an in-memory mirror serves the read helpers.
type ReferenceCache struct {
	db  *sql.DB
	now func() time.Time

	mu   sync.RWMutex
	snap models.Snapshot
}

func NewReferenceCache(db *sql.DB) *ReferenceCache {
	return &ReferenceCache{db: db, now: time.Now}
}

// Load reads the stored snapshot and refreshes the mirror. A cache that was
// never synced yields an empty snapshot with a nil LastSyncAt.
func (c *ReferenceCache) Load(ctx context.Context) (models.Snapshot, error) {
	snap, err := reference.NewSQLiteRepository(c.db).Load(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("load reference data: %w", err)
	}
	snap.LastSyncAt, err = metadata.NewSQLiteRepository(c.db).GetTime(ctx, metadata.KeyLastSyncAt)
	if err != nil {
		return models.Snapshot{}, err
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	return cloneSnapshot(snap), nil
}

// Replace atomically swaps the stored dataset for snap and stamps
// LastSyncAt (now, when snap does not carry one). On error neither the
// stored dataset nor the mirror changes.
func (c *ReferenceCache) Replace(ctx context.Context, snap models.Snapshot) error {
	snap = cloneSnapshot(snap)
	if snap.LastSyncAt == nil {
		now := c.now().UTC()
		snap.LastSyncAt = &now
	}

	err := dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := reference.NewSQLiteRepository(tx).Replace(ctx, snap); err != nil {
			return err
		}
		return metadata.NewSQLiteRepository(tx).SetTime(ctx, metadata.KeyLastSyncAt, *snap.LastSyncAt)
	})
	if err != nil {
		return fmt.Errorf("replace reference data: %w", err)
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the mirror.
func (c *ReferenceCache) Snapshot() models.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneSnapshot(c.snap)
}

func (c *ReferenceCache) LastSyncAt() *time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap.LastSyncAt == nil {
		return nil
	}
	t := *c.snap.LastSyncAt
	return &t
}

// Children lists the locations whose parent is parentID, sorted by name.
// An empty parentID lists the roots.
func (c *ReferenceCache) Children(parentID string) []models.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var res []models.Location
	for _, l := range c.snap.Locations {
		pid := ""
		if l.Parent != nil {
			pid = l.Parent.ID
		}
		if pid == parentID {
			res = append(res, cloneLocation(l))
		}
	}
	slices.SortFunc(res, func(a, b models.Location) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return res
}

func (c *ReferenceCache) Location(id string) (models.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.snap.Locations {
		if l.ID == id {
			return cloneLocation(l), true
		}
	}
	return models.Location{}, false
}

func (c *ReferenceCache) LocationByBarcode(code string) (models.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	want := recap.Normalize(code)
	if want == "" {
		return models.Location{}, false
	}
	for _, l := range c.snap.Locations {
		if recap.Normalize(l.Barcode) == want {
			return cloneLocation(l), true
		}
	}
	return models.Location{}, false
}

// ArticleByCode finds an article by normalized code. With duplicate codes
// the lowest id wins.
func (c *ReferenceCache) ArticleByCode(code string) (models.Article, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	want := recap.Normalize(code)
	var found *models.Article
	for i, a := range c.snap.Articles {
		if recap.Normalize(a.Code) != want {
			continue
		}
		if found == nil || a.ID < found.ID {
			found = &c.snap.Articles[i]
		}
	}
	if found == nil {
		return models.Article{}, false
	}
	return cloneArticle(*found), true
}

func (c *ReferenceCache) Group(id string) (models.Group, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.snap.Groups {
		if g.ID == id {
			return cloneGroup(g), true
		}
	}
	return models.Group{}, false
}

func (c *ReferenceCache) GroupsForCampaign(campaignID string) []models.Group {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var res []models.Group
	for _, g := range c.snap.Groups {
		if g.CampaignID == campaignID {
			res = append(res, cloneGroup(g))
		}
	}
	return res
}

func cloneRef(r *models.LocationRef) *models.LocationRef {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneLocation(l models.Location) models.Location {
	l.Parent = cloneRef(l.Parent)
	return l
}

func cloneGroup(g models.Group) models.Group {
	g.PINHash = slices.Clone(g.PINHash)
	if g.Locations != nil {
		locs := make([]models.Location, len(g.Locations))
		for i, l := range g.Locations {
			locs[i] = cloneLocation(l)
		}
		g.Locations = locs
	}
	return g
}

func cloneArticle(a models.Article) models.Article {
	a.CurrentLocation = cloneRef(a.CurrentLocation)
	a.Locations = slices.Clone(a.Locations)
	return a
}

func cloneSnapshot(s models.Snapshot) models.Snapshot {
	out := models.Snapshot{LastSyncAt: cloneTime(s.LastSyncAt)}
	if s.Campaigns != nil {
		out.Campaigns = make([]models.Campaign, len(s.Campaigns))
		for i, c := range s.Campaigns {
			c.StartDate, c.EndDate = cloneTime(c.StartDate), cloneTime(c.EndDate)
			out.Campaigns[i] = c
		}
	}
	if s.Groups != nil {
		out.Groups = make([]models.Group, len(s.Groups))
		for i, g := range s.Groups {
			out.Groups[i] = cloneGroup(g)
		}
	}
	if s.Locations != nil {
		out.Locations = make([]models.Location, len(s.Locations))
		for i, l := range s.Locations {
			out.Locations[i] = cloneLocation(l)
		}
	}
	if s.Articles != nil {
		out.Articles = make([]models.Article, len(s.Articles))
		for i, a := range s.Articles {
			out.Articles[i] = cloneArticle(a)
		}
	}
	return out
}
