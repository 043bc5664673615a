package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/report"
	"github.com/dmitrijs2005/inventaire/internal/client/services"
)

// writeFile is a test seam for os.WriteFile.
var writeFile = os.WriteFile

// recapOptions reads the optional "remote" and "scoped" words.
func recapOptions(args []string) (services.RecapOptions, error) {
	var opts services.RecapOptions
	for _, arg := range args {
		switch {
		case arg == "remote" && !opts.IncludeRemote:
			opts.IncludeRemote = true
		case arg == "scoped" && !opts.ScopeToGroup:
			opts.ScopeToGroup = true
		default:
			return opts, fmt.Errorf("unexpected argument %q", arg)
		}
	}
	return opts, nil
}

func (a *App) buildRecap(ctx context.Context, opts services.RecapOptions) (*services.Recap, error) {
	g, err := a.requireGroup()
	if err != nil {
		return nil, err
	}
	r, err := a.recapService.Build(ctx, g.CampaignID, g.ID, opts)
	if err != nil {
		return nil, err
	}
	if r.RemoteError != "" {
		a.printf("Remote scans unavailable (%s), local scans only\n", r.RemoteError)
	}
	return r, nil
}

// Recap prints the reconciliation of the group's scans against the
// articles expected at their locations. "remote" also merges the scans
// already held by the server; "scoped" limits missing articles to the
// group's locations.
func (a *App) Recap(ctx context.Context, args []string) error {
	opts, err := recapOptions(args)
	if err != nil {
		return usage("recap [remote] [scoped]")
	}
	r, err := a.buildRecap(ctx, opts)
	if err != nil {
		return err
	}

	missing, unexpected, unknown, matched := r.Totals()
	a.printf("%s / %s: %d scans\n", r.Campaign.Name, r.Group.Name, r.ScanCount)
	a.printf("Missing: %d, unexpected: %d, unknown: %d, matched: %d\n", missing, unexpected, unknown, matched)
	if r.Scoped {
		a.printf("Missing articles limited to the group's locations\n")
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	if missing > 0 {
		fmt.Fprintln(tw, "\nMISSING\tCODE\tDESCRIPTION\tLOCATION")
		for _, m := range r.Missing {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", m.Article.Code, m.Article.Description, m.Location.Name)
		}
	}
	if unexpected > 0 {
		fmt.Fprintln(tw, "\nUNEXPECTED\tCODE\tDESCRIPTION\tSCANNED AT\tEXPECTED AT")
		for _, u := range r.Unexpected {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s\n", u.Article.Code, u.Article.Description, u.Location.Name,
				strings.Join(u.ExpectedLocations, ", "))
		}
	}
	if unknown > 0 {
		fmt.Fprintln(tw, "\nUNKNOWN\tCODE\tLOCATION\tOBSERVATION")
		for _, s := range r.Unknown {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", s.Scan.Code, s.Location.Name, s.Scan.Observation)
		}
	}
	return tw.Flush()
}

// Report writes the recap as a PDF file.
func (a *App) Report(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("report <file.pdf> [remote] [scoped]")
	}
	opts, err := recapOptions(args[1:])
	if err != nil {
		return usage("report <file.pdf> [remote] [scoped]")
	}

	r, err := a.buildRecap(ctx, opts)
	if err != nil {
		return err
	}
	pdf, err := report.RenderRecapPDF(r)
	if err != nil {
		return err
	}
	if err := writeFile(args[0], pdf, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	a.printf("Recap written to %s\n", args[0])
	return nil
}

// Labels writes barcode labels for the children of a location or, without
// a parent, for the locations of the unlocked group.
func (a *App) Labels(_ context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("labels <file.pdf> [parent location]")
	}

	var locations []models.Location
	if len(args) == 2 {
		parent, ok := a.cache.LocationByBarcode(args[1])
		if !ok {
			parent, ok = a.cache.Location(args[1])
		}
		if !ok {
			return fmt.Errorf("unknown location %q", args[1])
		}
		locations = a.cache.Children(parent.ID)
	} else {
		g, err := a.requireGroup()
		if err != nil {
			return err
		}
		locations = g.Locations
	}

	pdf, err := report.RenderLocationLabelsPDF(locations, a.now())
	if err != nil {
		return err
	}
	if err := writeFile(args[0], pdf, 0o644); err != nil {
		return fmt.Errorf("write labels: %w", err)
	}
	a.printf("%d labels written to %s\n", len(locations), args[0])
	return nil
}
