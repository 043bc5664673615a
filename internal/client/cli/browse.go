package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

// Campaigns lists the cached campaigns.
func (a *App) Campaigns(_ context.Context) error {
	snap := a.cache.Snapshot()
	if len(snap.Campaigns) == 0 {
		a.printf("No campaigns cached\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tSTART\tEND")
	for _, c := range snap.Campaigns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Code, c.Name, formatDate(c.StartDate), formatDate(c.EndDate))
	}
	return tw.Flush()
}

// Groups lists cached groups, optionally for one campaign.
func (a *App) Groups(_ context.Context, args []string) error {
	if len(args) > 1 {
		return usage("groups [campaign id]")
	}

	groups := a.cache.Snapshot().Groups
	if len(args) == 1 {
		groups = a.cache.GroupsForCampaign(args[0])
	}
	if len(groups) == 0 {
		a.printf("No groups cached\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCAMPAIGN\tUSER\tLOCATIONS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", g.ID, g.Name, g.CampaignID, g.User.Username, len(g.Locations))
	}
	return tw.Flush()
}

// Browse lists the children of a location, or the roots without argument.
func (a *App) Browse(_ context.Context, args []string) error {
	if len(args) > 1 {
		return usage("browse [location id or barcode]")
	}

	parentID := ""
	if len(args) == 1 {
		loc, ok := a.cache.LocationByBarcode(args[0])
		if !ok {
			loc, ok = a.cache.Location(args[0])
		}
		if !ok {
			return fmt.Errorf("unknown location %q", args[0])
		}
		parentID = loc.ID
		a.printf("%s\n", loc.Name)
	}

	children := a.cache.Children(parentID)
	if len(children) == 0 {
		a.printf("No locations\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBARCODE\tSUB")
	for _, l := range children {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", l.ID, l.Name, l.Barcode, len(a.cache.Children(l.ID)))
	}
	return tw.Flush()
}

// Status prints connectivity, session and sync state.
func (a *App) Status(ctx context.Context) error {
	a.printf("Mode: %s\n", a.currentMode())

	a.mu.Lock()
	user, group := a.userName, a.group
	a.mu.Unlock()

	if user == "" {
		a.printf("User: not logged in\n")
	} else {
		a.printf("User: %s\n", user)
	}

	if last := a.cache.LastSyncAt(); last != nil {
		a.printf("Last full sync: %s\n", last.Local().Format("2006-01-02 15:04:05"))
	} else {
		a.printf("Last full sync: never\n")
	}

	if group == nil {
		a.printf("Group: none\n")
	} else {
		n, err := a.scanStore.CountPending(ctx, a.groupFilter(group))
		if err != nil {
			return err
		}
		a.printf("Group: %s (%s)\nPending scans: %d\n", group.Name, group.ID, n)
	}

	if a.syncService.IsSyncing() || a.syncService.IsScanSyncing() {
		a.printf("Synchronization in progress\n")
	}
	return nil
}
