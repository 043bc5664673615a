package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/recap"
	"github.com/dmitrijs2005/inventaire/internal/logging"
)

// Recap is a computed report together with the scope it was built for.
type Recap struct {
	recap.Report
	Campaign       models.Campaign
	Group          models.Group
	GeneratedAt    time.Time
	ScanCount      int
	RemoteIncluded bool
	// Scoped is set when Missing only covers the group's locations.
	Scoped bool
	// RemoteError is set when remote scans were requested but could not
	// be fetched; the report then covers local scans only.
	RemoteError string
}

// RecapOptions tune a recap. IncludeRemote merges the scans held by the
// server. ScopeToGroup limits the missing list to the group's authorized
// locations; by default every expected assignment is checked.
type RecapOptions struct {
	IncludeRemote bool
	ScopeToGroup  bool
}

type RecapService interface {
	Build(ctx context.Context, campaignID, groupID string, opts RecapOptions) (*Recap, error)
}

type recapService struct {
	client client.Client
	cache  *ReferenceCache
	store  ScanStore
	log    logging.Logger
	now    func() time.Time
}

func NewRecapService(c client.Client, cache *ReferenceCache, store ScanStore, log logging.Logger) RecapService {
	return &recapService{client: c, cache: cache, store: store, log: log.With("component", "recap"), now: time.Now}
}

func (s *recapService) Build(ctx context.Context, campaignID, groupID string, opts RecapOptions) (*Recap, error) {
	snap := s.cache.Snapshot()

	res := &Recap{GeneratedAt: s.now().UTC()}
	for _, c := range snap.Campaigns {
		if c.ID == campaignID {
			res.Campaign = c
		}
	}
	if res.Campaign.ID == "" {
		res.Campaign = models.Campaign{ID: campaignID, Name: campaignID}
	}
	if g, ok := s.cache.Group(groupID); ok {
		res.Group = g
	} else {
		res.Group = models.Group{ID: groupID, Name: groupID, CampaignID: campaignID}
	}

	scans, err := s.store.List(ctx, models.ScanFilter{CampaignID: campaignID, GroupID: groupID})
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}

	if opts.IncludeRemote && s.client != nil {
		remote, err := s.client.Scans(ctx, campaignID, groupID)
		if err != nil {
			s.log.Warn(ctx, "remote scans unavailable, using local scans", "error", err)
			res.RemoteError = err.Error()
		} else {
			scans = recap.MergeScans(scans, remote)
			res.RemoteIncluded = true
		}
	}

	in := recap.Input{Articles: snap.Articles, Locations: snap.Locations, Scans: scans}
	if opts.ScopeToGroup {
		in.LocationScope = res.Group.LocationIDs()
		res.Scoped = len(in.LocationScope) > 0
	}

	res.ScanCount = len(scans)
	res.Report = recap.Compute(in)
	return res, nil
}
