package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/cryptox"
	"github.com/dmitrijs2005/inventaire/internal/logging"
)

const (
	DefaultScanBatchSize   = 2
	DefaultArticlePageSize = 500
	DefaultMaxArticlePages = 1000
)

// SyncService moves data between the remote API and the local stores.
//
// SyncAll refreshes the reference cache. The scan operations upload
// pending scans (SyncScans, SyncScanByID) or the images of scans uploaded
// without them (SyncScanImageByID). A second SyncAll while one runs is a
// no-op; the same holds for the scan operations, which share one flag.
type SyncService interface {
	SyncAll(ctx context.Context) error
	SyncScans(ctx context.Context) (*models.SyncSummary, error)
	SyncScanByID(ctx context.Context, id string, includeImages bool) (*models.SyncSummary, error)
	SyncScanImageByID(ctx context.Context, id string) (*models.SyncSummary, error)
	IsSyncing() bool
	IsScanSyncing() bool
}

// ImageCompressor prepares the images of a scan for upload.
type ImageCompressor interface {
	CompressAll(ctx context.Context, uris []string) ([]client.ImageData, error)
}

type SyncConfig struct {
	BatchSize int
	PageSize  int
	MaxPages  int
	GroupRole string
}

func (c SyncConfig) withDefaults() SyncConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultScanBatchSize
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultArticlePageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxArticlePages
	}
	return c
}

type syncService struct {
	client client.Client
	cache  *ReferenceCache
	store  ScanStore
	images ImageCompressor
	tokens client.TokenSource
	log    logging.Logger
	cfg    SyncConfig
	now    func() time.Time

	syncing     atomic.Bool
	scanSyncing atomic.Bool
}

func NewSyncService(c client.Client, cache *ReferenceCache, store ScanStore, images ImageCompressor,
	tokens client.TokenSource, log logging.Logger, cfg SyncConfig) SyncService {
	return &syncService{
		client: c,
		cache:  cache,
		store:  store,
		images: images,
		tokens: tokens,
		log:    log.With("component", "sync"),
		cfg:    cfg.withDefaults(),
		now:    time.Now,
	}
}

func (s *syncService) IsSyncing() bool     { return s.syncing.Load() }
func (s *syncService) IsScanSyncing() bool { return s.scanSyncing.Load() }

func (s *syncService) SyncAll(ctx context.Context) error {
	if !s.syncing.CompareAndSwap(false, true) {
		s.log.Info(ctx, "full sync already running, skipped")
		return nil
	}
	defer s.syncing.Store(false)

	started := s.now()
	s.log.Info(ctx, "full sync started")

	snap, err := s.fetchSnapshot(ctx)
	if err != nil {
		s.log.Error(ctx, "full sync failed", "error", err)
		return fmt.Errorf("full sync: %w", err)
	}
	if err := s.cache.Replace(ctx, snap); err != nil {
		s.log.Error(ctx, "full sync failed", "error", err)
		return fmt.Errorf("full sync: %w", err)
	}

	s.log.Info(ctx, "full sync finished",
		"campaigns", len(snap.Campaigns), "groups", len(snap.Groups),
		"locations", len(snap.Locations), "articles", len(snap.Articles),
		"elapsed", s.now().Sub(started))
	return nil
}

func (s *syncService) fetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	campaigns, err := s.client.Campaigns(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("fetch campaigns: %w", err)
	}
	groups, err := s.client.Groups(ctx, s.cfg.GroupRole)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("fetch groups: %w", err)
	}
	locations, err := s.client.Locations(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("fetch locations: %w", err)
	}
	rows, err := s.fetchArticles(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}

	now := s.now().UTC()
	return models.Snapshot{
		Campaigns:  campaigns,
		Groups:     buildGroups(groups, locations),
		Locations:  locations,
		Articles:   buildArticles(rows),
		LastSyncAt: &now,
	}, nil
}

// fetchArticles walks the article pages from 1 while page <= totalPages.
func (s *syncService) fetchArticles(ctx context.Context) ([]client.ArticleRow, error) {
	var rows []client.ArticleRow
	total := 1
	for page := 1; page <= total; page++ {
		if page > s.cfg.MaxPages {
			return nil, fmt.Errorf("fetch articles: more than %d pages", s.cfg.MaxPages)
		}
		p, err := s.client.Articles(ctx, page, s.cfg.PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch articles page %d: %w", page, err)
		}
		rows = append(rows, p.Rows...)
		total = p.TotalPages
		s.log.Debug(ctx, "article page fetched", "page", page, "total_pages", total, "rows", len(p.Rows))
	}
	return rows, nil
}

// buildArticles merges rows sharing an id, dedupes assignments by id and
// sorts them by name. Articles are ordered by code, then id.
func buildArticles(rows []client.ArticleRow) []models.Article {
	byID := make(map[string]*models.Article, len(rows))
	var order []string

	for _, r := range rows {
		a, ok := byID[r.ID]
		if !ok {
			a = &models.Article{
				ID:           r.ID,
				Code:         r.Code,
				Description:  r.Description,
				SerialNumber: r.SerialNumber,
			}
			byID[r.ID] = a
			order = append(order, r.ID)
		}
		if a.CurrentLocation == nil && r.CurrentLocation != nil {
			ref := *r.CurrentLocation
			a.CurrentLocation = &ref
		}
		for _, l := range r.Locations {
			if !slices.ContainsFunc(a.Locations, func(x models.LocationRef) bool { return x.ID == l.ID }) {
				a.Locations = append(a.Locations, l)
			}
		}
	}

	res := make([]models.Article, 0, len(order))
	for _, id := range order {
		a := byID[id]
		slices.SortFunc(a.Locations, func(x, y models.LocationRef) int {
			return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.ID, y.ID))
		})
		res = append(res, *a)
	}
	slices.SortFunc(res, func(x, y models.Article) int {
		return cmp.Or(cmp.Compare(x.Code, y.Code), cmp.Compare(x.ID, y.ID))
	})
	return res
}

// buildGroups materializes the location ids of each group and replaces
// the clear PIN by its hash.
func buildGroups(rows []client.GroupRow, locations []models.Location) []models.Group {
	byID := make(map[string]models.Location, len(locations))
	for _, l := range locations {
		byID[l.ID] = l
	}

	res := make([]models.Group, 0, len(rows))
	for _, r := range rows {
		g := models.Group{
			ID:         r.ID,
			Name:       r.Name,
			DeviceID:   r.DeviceID,
			Role:       r.Role,
			CampaignID: r.CampaignID,
			User:       r.User,
			PINHash:    cryptox.HashPIN(r.ID, r.PIN),
		}
		seen := make(map[string]bool, len(r.LocationIDs))
		for _, id := range r.LocationIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			l, ok := byID[id]
			if !ok {
				l = models.Location{ID: id}
			}
			g.Locations = append(g.Locations, cloneLocation(l))
		}
		res = append(res, g)
	}
	return res
}

func (s *syncService) requireToken(ctx context.Context) error {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrAuthRequired
	}
	return nil
}

func failure(rec models.ScanRecord, reason any) string {
	return fmt.Sprintf("%s: %v", rec.Label(), reason)
}

func toPayload(rec models.ScanRecord, images []client.ImageData) client.ScanPayload {
	if images == nil {
		images = []client.ImageData{}
	}
	return client.ScanPayload{
		LocalID:      rec.ID,
		CampaignID:   rec.CampaignID,
		GroupID:      rec.GroupID,
		LocationID:   rec.LocationID,
		Code:         rec.Code,
		ArticleID:    rec.ArticleID,
		Description:  rec.Description,
		Observation:  rec.Observation,
		SerialNumber: rec.SerialNumber,
		Etat:         string(rec.Condition),
		CapturedAt:   rec.CapturedAt,
		Source:       string(rec.Source),
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		Images:       images,
	}
}

func (s *syncService) compress(ctx context.Context, rec models.ScanRecord) ([]client.ImageData, error) {
	if len(rec.Images) == 0 {
		return nil, nil
	}
	if s.images == nil {
		return nil, fmt.Errorf("no image compressor configured")
	}
	return s.images.CompressAll(ctx, rec.Images)
}

// correlate matches results to the sent records by local id. Successful
// results become updates; everything else is counted as failed.
func correlate(sent []models.ScanRecord, results []client.SyncResult, withoutImage bool, summary *models.SyncSummary) []models.SyncUpdate {
	byID := make(map[string]client.SyncResult, len(results))
	for _, r := range results {
		byID[r.LocalID] = r
	}

	var updates []models.SyncUpdate
	for _, rec := range sent {
		r, ok := byID[rec.ID]
		switch {
		case !ok:
			summary.Fail(failure(rec, "no result returned"))
		case !r.Success || r.RemoteID == "":
			summary.Fail(failure(rec, r.Reason()))
		default:
			updates = append(updates, models.SyncUpdate{ID: rec.ID, RemoteID: r.RemoteID, SyncedWithoutImage: withoutImage})
		}
	}
	return updates
}

// persist stores updates and folds the outcome into summary: applied
// updates count as synced, the others as failed.
func (s *syncService) persist(ctx context.Context, sent []models.ScanRecord, updates []models.SyncUpdate, summary *models.SyncSummary) error {
	applied, err := s.store.MarkSynced(ctx, updates)
	summary.SyncedCount += len(applied)
	if err == nil {
		return nil
	}

	done := make(map[string]struct{}, len(applied))
	for _, id := range applied {
		done[id] = struct{}{}
	}
	byID := make(map[string]models.ScanRecord, len(sent))
	for _, rec := range sent {
		byID[rec.ID] = rec
	}
	for _, u := range updates {
		if _, ok := done[u.ID]; !ok {
			summary.Fail(failure(byID[u.ID], "sync state not saved"))
		}
	}
	s.log.Error(ctx, "persist sync state", "error", err, "applied", len(applied), "failed", len(updates)-len(applied))
	return fmt.Errorf("persist sync state: %w", err)
}

// SyncScans uploads every pending scan in batches. Failures of individual
// records are reported in the summary. A transport error stops the run and
// is returned along with the summary so far; records confirmed by earlier
// batches stay synced.
func (s *syncService) SyncScans(ctx context.Context) (*models.SyncSummary, error) {
	if !s.scanSyncing.CompareAndSwap(false, true) {
		s.log.Info(ctx, "scan sync already running, skipped")
		return &models.SyncSummary{}, nil
	}
	defer s.scanSyncing.Store(false)

	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	pending, err := s.store.ListPending(ctx, models.ScanFilter{})
	if err != nil {
		return nil, fmt.Errorf("list pending scans: %w", err)
	}
	summary := &models.SyncSummary{TotalCount: len(pending)}
	if len(pending) == 0 {
		return summary, nil
	}
	s.log.Info(ctx, "scan sync started", "pending", len(pending), "batch_size", s.cfg.BatchSize)

	for start := 0; start < len(pending); start += s.cfg.BatchSize {
		batch := pending[start:min(start+s.cfg.BatchSize, len(pending))]

		var sent []models.ScanRecord
		var payloads []client.ScanPayload
		for _, rec := range batch {
			images, err := s.compress(ctx, rec)
			if err != nil {
				s.log.Warn(ctx, "scan images not processed", "scan", rec.ID, "error", err)
				summary.Fail(failure(rec, err))
				continue
			}
			sent = append(sent, rec)
			payloads = append(payloads, toPayload(rec, images))
		}
		if len(payloads) == 0 {
			continue
		}

		results, err := s.client.SyncScans(ctx, payloads)
		if err != nil {
			s.log.Error(ctx, "scan sync aborted", "error", err, "synced", summary.SyncedCount)
			return summary, fmt.Errorf("sync scans: %w", err)
		}

		updates := correlate(sent, results, false, summary)
		if err := s.persist(ctx, sent, updates, summary); err != nil {
			return summary, err
		}
	}

	s.log.Info(ctx, "scan sync finished",
		"total", summary.TotalCount, "synced", summary.SyncedCount, "failed", summary.FailedCount)
	return summary, nil
}

func (s *syncService) SyncScanByID(ctx context.Context, id string, includeImages bool) (*models.SyncSummary, error) {
	if !s.scanSyncing.CompareAndSwap(false, true) {
		s.log.Info(ctx, "scan sync already running, skipped", "scan", id)
		return &models.SyncSummary{}, nil
	}
	defer s.scanSyncing.Store(false)

	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return models.FailedSummary(fmt.Sprintf("%s: %v", id, ErrScanNotFound)), nil
	}
	if rec.IsSynced {
		return models.FailedSummary(failure(*rec, "already synced")), nil
	}

	var images []client.ImageData
	if includeImages {
		if images, err = s.compress(ctx, *rec); err != nil {
			return models.FailedSummary(failure(*rec, err)), nil
		}
	}

	results, err := s.client.SyncScans(ctx, []client.ScanPayload{toPayload(*rec, images)})
	if err != nil {
		return nil, fmt.Errorf("sync scan %s: %w", id, err)
	}

	// a scan without images has nothing left to repair
	withoutImage := !includeImages && len(rec.Images) > 0

	summary := &models.SyncSummary{TotalCount: 1}
	updates := correlate([]models.ScanRecord{*rec}, results, withoutImage, summary)
	if err := s.persist(ctx, []models.ScanRecord{*rec}, updates, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// SyncScanImageByID uploads the images of a scan that was synced without
// them. Records that are not in that state fail without a remote call.
func (s *syncService) SyncScanImageByID(ctx context.Context, id string) (*models.SyncSummary, error) {
	if !s.scanSyncing.CompareAndSwap(false, true) {
		s.log.Info(ctx, "scan sync already running, skipped", "scan", id)
		return &models.SyncSummary{}, nil
	}
	defer s.scanSyncing.Store(false)

	if err := s.requireToken(ctx); err != nil {
		return nil, err
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case rec == nil:
		return models.FailedSummary(fmt.Sprintf("%s: %v", id, ErrScanNotFound)), nil
	case !rec.NeedsImageRepair():
		return models.FailedSummary(failure(*rec, fmt.Errorf("%w for image sync", ErrNotEligible))), nil
	case rec.RemoteID == nil || *rec.RemoteID == "":
		return models.FailedSummary(failure(*rec, "no remote id")), nil
	case len(rec.Images) == 0:
		return models.FailedSummary(failure(*rec, "no images")), nil
	}

	images, err := s.compress(ctx, *rec)
	if err != nil {
		return models.FailedSummary(failure(*rec, err)), nil
	}

	results, err := s.client.SyncScanImages(ctx, []client.ImagePayload{{
		LocalID:  rec.ID,
		RemoteID: *rec.RemoteID,
		Images:   images,
	}})
	if err != nil {
		return nil, fmt.Errorf("sync scan images %s: %w", id, err)
	}

	// the image mutation may omit the remote id; the stored one stays
	for i := range results {
		if results[i].Success && results[i].RemoteID == "" {
			results[i].RemoteID = *rec.RemoteID
		}
	}

	summary := &models.SyncSummary{TotalCount: 1}
	updates := correlate([]models.ScanRecord{*rec}, results, false, summary)
	if err := s.persist(ctx, []models.ScanRecord{*rec}, updates, summary); err != nil {
		return summary, err
	}
	return summary, nil
}
