// Package recap reconciles scans against the expected article placements.
//
// Compute is pure: it takes the reference articles and locations plus a set
// of scans and produces the three-way variance report. Every scan ends up in
// exactly one of Matched, Unexpected or Unknown; every (article, expected
// location) pair without a scan at that location ends up in Missing.
package recap

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

// Normalize is the canonical form used for code comparison.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type Input struct {
	Articles  []models.Article
	Locations []models.Location
	Scans     []models.ScanRecord
	// LocationScope restricts Missing to these location ids when non-empty.
	LocationScope []string
}

// LocationGroup lists the scans made at one location.
type LocationGroup struct {
	Location models.LocationRef
	Scans    []models.ScanRecord
}

// MissingItem is an article expected at Location and not scanned there.
type MissingItem struct {
	Article  models.Article
	Location models.LocationRef
}

// UnexpectedItem is a scan of a known article at a location it is not
// assigned to.
type UnexpectedItem struct {
	Scan              models.ScanRecord
	Article           models.Article
	Location          models.LocationRef
	ExpectedLocations []string
}

// ScanItem is a scan with its resolved location and, when known, article.
type ScanItem struct {
	Scan     models.ScanRecord
	Location models.LocationRef
	Article  *models.Article
}

type Report struct {
	ByLocation []LocationGroup
	Missing    []MissingItem
	Unexpected []UnexpectedItem
	Unknown    []ScanItem
	Matched    []ScanItem
}

// Totals returns the list sizes in the order missing, unexpected, unknown,
// matched.
func (r Report) Totals() (missing, unexpected, unknown, matched int) {
	return len(r.Missing), len(r.Unexpected), len(r.Unknown), len(r.Matched)
}

type index struct {
	names    map[string]string
	articles map[string][]models.Article
}

func newIndex(in Input) index {
	ix := index{
		names:    make(map[string]string, len(in.Locations)),
		articles: make(map[string][]models.Article, len(in.Articles)),
	}
	for _, a := range in.Articles {
		for _, l := range a.Locations {
			if l.Name != "" {
				ix.names[l.ID] = l.Name
			}
		}
	}
	for _, l := range in.Locations {
		if l.Name != "" {
			ix.names[l.ID] = l.Name
		}
	}
	for _, a := range in.Articles {
		key := Normalize(a.Code)
		ix.articles[key] = append(ix.articles[key], a)
	}
	for _, list := range ix.articles {
		slices.SortFunc(list, func(a, b models.Article) int { return cmp.Compare(a.ID, b.ID) })
	}
	return ix
}

func (ix index) location(id string) models.LocationRef {
	if name, ok := ix.names[id]; ok {
		return models.LocationRef{ID: id, Name: name}
	}
	return models.LocationRef{ID: id, Name: id}
}

func byLocationCodeID(locA, locB models.LocationRef, codeA, codeB, idA, idB string) int {
	return cmp.Or(
		cmp.Compare(locA.Name, locB.Name),
		cmp.Compare(locA.ID, locB.ID),
		cmp.Compare(Normalize(codeA), Normalize(codeB)),
		cmp.Compare(idA, idB),
	)
}

func Compute(in Input) Report {
	ix := newIndex(in)
	var rep Report

	groups := make(map[string]*LocationGroup)
	// scanned[locationID][normalized code]
	scanned := make(map[string]map[string]bool)

	for _, s := range in.Scans {
		loc := ix.location(s.LocationID)
		g, ok := groups[s.LocationID]
		if !ok {
			g = &LocationGroup{Location: loc}
			groups[s.LocationID] = g
		}
		g.Scans = append(g.Scans, s)

		code := Normalize(s.Code)
		if scanned[s.LocationID] == nil {
			scanned[s.LocationID] = make(map[string]bool)
		}
		scanned[s.LocationID][code] = true

		candidates := ix.articles[code]
		if len(candidates) == 0 {
			rep.Unknown = append(rep.Unknown, ScanItem{Scan: s, Location: loc})
			continue
		}

		var match *models.Article
		for i := range candidates {
			if candidates[i].ExpectedAt(s.LocationID) {
				match = &candidates[i]
				break
			}
		}
		if match != nil {
			a := *match
			rep.Matched = append(rep.Matched, ScanItem{Scan: s, Location: loc, Article: &a})
			continue
		}

		a := candidates[0]
		expected := make([]string, 0, len(a.Locations))
		for _, l := range a.Locations {
			expected = append(expected, ix.location(l.ID).Name)
		}
		slices.Sort(expected)
		rep.Unexpected = append(rep.Unexpected, UnexpectedItem{Scan: s, Article: a, Location: loc, ExpectedLocations: expected})
	}

	var scope map[string]bool
	if len(in.LocationScope) > 0 {
		scope = make(map[string]bool, len(in.LocationScope))
		for _, id := range in.LocationScope {
			scope[id] = true
		}
	}

	for _, a := range in.Articles {
		code := Normalize(a.Code)
		seen := make(map[string]bool, len(a.Locations))
		for _, l := range a.Locations {
			if seen[l.ID] || (scope != nil && !scope[l.ID]) {
				continue
			}
			seen[l.ID] = true
			if scanned[l.ID][code] {
				continue
			}
			rep.Missing = append(rep.Missing, MissingItem{Article: a, Location: ix.location(l.ID)})
		}
	}

	for _, g := range groups {
		slices.SortFunc(g.Scans, func(a, b models.ScanRecord) int {
			return cmp.Or(b.CapturedAt.Compare(a.CapturedAt), cmp.Compare(a.ID, b.ID))
		})
		rep.ByLocation = append(rep.ByLocation, *g)
	}
	slices.SortFunc(rep.ByLocation, func(a, b LocationGroup) int {
		return cmp.Or(cmp.Compare(a.Location.Name, b.Location.Name), cmp.Compare(a.Location.ID, b.Location.ID))
	})
	slices.SortFunc(rep.Missing, func(a, b MissingItem) int {
		return byLocationCodeID(a.Location, b.Location, a.Article.Code, b.Article.Code, a.Article.ID, b.Article.ID)
	})
	slices.SortFunc(rep.Unexpected, func(a, b UnexpectedItem) int {
		return byLocationCodeID(a.Location, b.Location, a.Scan.Code, b.Scan.Code, a.Scan.ID, b.Scan.ID)
	})
	sortItems := func(items []ScanItem) {
		slices.SortFunc(items, func(a, b ScanItem) int {
			return byLocationCodeID(a.Location, b.Location, a.Scan.Code, b.Scan.Code, a.Scan.ID, b.Scan.ID)
		})
	}
	sortItems(rep.Unknown)
	sortItems(rep.Matched)

	return rep
}

func captureKey(s models.ScanRecord) string {
	return Normalize(s.Code) + "|" + s.CapturedAt.UTC().Format(time.RFC3339Nano)
}

// MergeScans combines local scans with the scans listed by the server.
// A remote scan is dropped when a local record carries its remote id, or
// has the same normalized code and capture time. Local records come first.
func MergeScans(local, remote []models.ScanRecord) []models.ScanRecord {
	remoteIDs := make(map[string]bool, len(local))
	keys := make(map[string]bool, len(local))
	res := make([]models.ScanRecord, 0, len(local)+len(remote))

	for _, s := range local {
		if s.RemoteID != nil && *s.RemoteID != "" {
			remoteIDs[*s.RemoteID] = true
		}
		keys[captureKey(s)] = true
		res = append(res, s)
	}

	for _, s := range remote {
		rid := s.ID
		if s.RemoteID != nil && *s.RemoteID != "" {
			rid = *s.RemoteID
		}
		if rid != "" && remoteIDs[rid] {
			continue
		}
		key := captureKey(s)
		if keys[key] {
			continue
		}
		if rid != "" {
			remoteIDs[rid] = true
		}
		keys[key] = true
		res = append(res, s)
	}
	return res
}
