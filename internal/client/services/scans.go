package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/repositories/scans"
	"github.com/google/uuid"
)

// ScanStore is the local store of captured scans.
//
// Records are created once and afterwards only their sync state changes
// (MarkSynced). Listings are newest first.
type ScanStore interface {
	Create(ctx context.Context, in models.ScanInput) (*models.ScanRecord, error)
	FindByID(ctx context.Context, id string) (*models.ScanRecord, error)
	List(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error)
	ListPending(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error)
	ListSynced(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error)
	CountPending(ctx context.Context, f models.ScanFilter) (int, error)
	MarkSynced(ctx context.Context, updates []models.SyncUpdate) ([]string, error)
}

// ArticleResolver looks up the article behind a scanned code.
type ArticleResolver interface {
	ArticleByCode(code string) (models.Article, bool)
}

type scanStore struct {
	repo     scans.Repository
	articles ArticleResolver
	now      func() time.Time
}

// NewScanStore returns a ScanStore over db. articles may be nil, in which
// case ArticleID is only set when the caller provides it.
func NewScanStore(db *sql.DB, articles ArticleResolver) ScanStore {
	return &scanStore{repo: scans.NewSQLiteRepository(db), articles: articles, now: time.Now}
}

func (s *scanStore) Create(ctx context.Context, in models.ScanInput) (*models.ScanRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
	}

	rec := &models.ScanRecord{
		ID:           uuid.NewString(),
		CampaignID:   in.CampaignID,
		GroupID:      in.GroupID,
		LocationID:   in.LocationID,
		Code:         in.Code,
		ArticleID:    in.ArticleID,
		Description:  in.Description,
		Observation:  in.Observation,
		SerialNumber: in.SerialNumber,
		Condition:    in.Condition,
		CapturedAt:   in.CapturedAt.UTC(),
		Source:       in.Source,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Images:       slices.Clone(in.Images),
	}
	if in.CapturedAt.IsZero() {
		rec.CapturedAt = s.now().UTC()
	}
	if rec.Source == "" {
		rec.Source = models.SourceManual
	}
	if rec.ArticleID == nil && s.articles != nil {
		if a, ok := s.articles.ArticleByCode(in.Code); ok {
			id := a.ID
			rec.ArticleID = &id
			if rec.Description == "" {
				rec.Description = a.Description
			}
		}
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *scanStore) FindByID(ctx context.Context, id string) (*models.ScanRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *scanStore) List(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error) {
	return s.repo.List(ctx, f)
}

func (s *scanStore) ListPending(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error) {
	synced := false
	f.IsSynced = &synced
	return s.repo.List(ctx, f)
}

func (s *scanStore) ListSynced(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error) {
	synced := true
	f.IsSynced = &synced
	return s.repo.List(ctx, f)
}

func (s *scanStore) CountPending(ctx context.Context, f models.ScanFilter) (int, error) {
	synced := false
	f.IsSynced = &synced
	return s.repo.Count(ctx, f)
}

// MarkSynced applies every update with its own statement and returns the
// ids that were applied. A failing update does not stop the others; all
// failures are returned joined.
func (s *scanStore) MarkSynced(ctx context.Context, updates []models.SyncUpdate) ([]string, error) {
	applied := make([]string, 0, len(updates))
	var errs []error
	for _, u := range updates {
		if err := s.repo.MarkSynced(ctx, u); err != nil {
			errs = append(errs, err)
			continue
		}
		applied = append(applied, u.ID)
	}
	return applied, errors.Join(errs...)
}
