package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

var errNoGroup = errors.New("no group unlocked, use 'unlock <group id>' first")

func (a *App) requireGroup() (*models.Group, error) {
	g := a.currentGroup()
	if g == nil {
		return nil, errNoGroup
	}
	return g, nil
}

func (a *App) groupFilter(g *models.Group) models.ScanFilter {
	return models.ScanFilter{CampaignID: g.CampaignID, GroupID: g.ID}
}

// SyncAll refreshes campaigns, groups, locations and articles.
func (a *App) SyncAll(ctx context.Context) error {
	if a.syncService.IsSyncing() {
		a.printf("A synchronization is already running\n")
		return nil
	}
	if err := a.syncService.SyncAll(ctx); err != nil {
		return err
	}

	snap := a.cache.Snapshot()
	a.printf("Reference data updated: %d campaigns, %d groups, %d locations, %d articles\n",
		len(snap.Campaigns), len(snap.Groups), len(snap.Locations), len(snap.Articles))

	if g := a.currentGroup(); g != nil {
		if fresh, ok := a.cache.Group(g.ID); ok {
			a.mu.Lock()
			a.group = &fresh
			a.mu.Unlock()
		}
	}
	return nil
}

// SyncScans uploads every pending scan. The summary is printed even when the
// run stopped on a transport failure.
func (a *App) SyncScans(ctx context.Context) error {
	if a.syncService.IsScanSyncing() {
		a.printf("A scan upload is already running\n")
		return nil
	}
	summary, err := a.syncService.SyncScans(ctx)
	a.printSummary(summary)
	return err
}

// Retry uploads one scan; "noimg" sends it without its images.
func (a *App) Retry(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 || (len(args) == 2 && args[1] != "noimg") {
		return usage("retry <scan id> [noimg]")
	}
	summary, err := a.syncService.SyncScanByID(ctx, args[0], len(args) == 1)
	a.printSummary(summary)
	return err
}

// Repair uploads the images of a scan that was sent without them.
func (a *App) Repair(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("repair <scan id>")
	}
	summary, err := a.syncService.SyncScanImageByID(ctx, args[0])
	a.printSummary(summary)
	return err
}

func (a *App) printSummary(s *models.SyncSummary) {
	if s == nil {
		return
	}
	a.printf("Total: %d, synced: %d, failed: %d\n", s.TotalCount, s.SyncedCount, s.FailedCount)
	for _, e := range s.Errors {
		a.printf("  - %s\n", e)
	}
}

// Pending lists the scans of the unlocked group that still need an upload,
// including those whose images were left behind.
func (a *App) Pending(ctx context.Context) error {
	g, err := a.requireGroup()
	if err != nil {
		return err
	}

	pending, err := a.scanStore.ListPending(ctx, a.groupFilter(g))
	if err != nil {
		return err
	}
	synced, err := a.scanStore.ListSynced(ctx, a.groupFilter(g))
	if err != nil {
		return err
	}

	var repair []models.ScanRecord
	for _, r := range synced {
		if r.NeedsImageRepair() {
			repair = append(repair, r)
		}
	}

	if len(pending) == 0 && len(repair) == 0 {
		a.printf("Nothing to upload\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tLOCATION\tCAPTURED\tSTATE")
	for _, r := range pending {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Code, a.locationName(r.LocationID),
			r.CapturedAt.Local().Format("2006-01-02 15:04"), "pending")
	}
	for _, r := range repair {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Code, a.locationName(r.LocationID),
			r.CapturedAt.Local().Format("2006-01-02 15:04"), "images missing")
	}
	return tw.Flush()
}

func (a *App) locationName(id string) string {
	if l, ok := a.cache.Location(id); ok && l.Name != "" {
		return l.Name
	}
	return id
}
