package recap

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	locX = models.Location{ID: "lx", Name: "LocationX"}
	locY = models.Location{ID: "ly", Name: "LocationY"}
	locZ = models.Location{ID: "lz", Name: "LocationZ"}
	t0   = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

func article(id, code string, locs ...models.Location) models.Article {
	a := models.Article{ID: id, Code: code}
	for _, l := range locs {
		a.Locations = append(a.Locations, l.Ref())
	}
	return a
}

func scan(id, code string, loc models.Location, at time.Time) models.ScanRecord {
	return models.ScanRecord{ID: id, Code: code, LocationID: loc.ID, CapturedAt: at, CampaignID: "c1", GroupID: "g1"}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "A100", Normalize("  a100\t"))
	assert.Equal(t, Normalize("A100"), Normalize(" a100 "))
	assert.Equal(t, "", Normalize("   "))
}

func TestCompute_ScannedAtWrongLocation(t *testing.T) {
	rep := Compute(Input{
		Articles:  []models.Article{article("a1", "A100", locX)},
		Locations: []models.Location{locX, locY},
		Scans:     []models.ScanRecord{scan("s1", "A100", locY, t0)},
	})

	require.Len(t, rep.Unexpected, 1)
	assert.Equal(t, "LocationY", rep.Unexpected[0].Location.Name)
	assert.Equal(t, []string{"LocationX"}, rep.Unexpected[0].ExpectedLocations)
	assert.Equal(t, "a1", rep.Unexpected[0].Article.ID)

	require.Len(t, rep.Missing, 1)
	assert.Equal(t, "A100", rep.Missing[0].Article.Code)
	assert.Equal(t, "LocationX", rep.Missing[0].Location.Name)

	assert.Empty(t, rep.Matched)
	assert.Empty(t, rep.Unknown)
}

func TestCompute_NormalizedCodesMatch(t *testing.T) {
	rep := Compute(Input{
		Articles:  []models.Article{article("a1", "A100", locX)},
		Locations: []models.Location{locX},
		Scans:     []models.ScanRecord{scan("s1", " a100 ", locX, t0)},
	})

	require.Len(t, rep.Matched, 1)
	require.NotNil(t, rep.Matched[0].Article)
	assert.Equal(t, "a1", rep.Matched[0].Article.ID)
	assert.Empty(t, rep.Missing)
	assert.Empty(t, rep.Unexpected)

	// the scan keeps the code as captured
	assert.Equal(t, " a100 ", rep.Matched[0].Scan.Code)
}

func TestCompute_EveryScanLandsInExactlyOneBucket(t *testing.T) {
	in := Input{
		Articles: []models.Article{
			article("a1", "A100", locX),
			article("a2", "B200", locX, locY),
			article("a3", "C300", locZ),
		},
		Locations: []models.Location{locX, locY, locZ},
		Scans: []models.ScanRecord{
			scan("s1", "A100", locX, t0),
			scan("s2", "a100", locY, t0.Add(time.Minute)),
			scan("s3", "B200", locY, t0.Add(2*time.Minute)),
			scan("s4", "ZZZ", locX, t0.Add(3*time.Minute)),
			scan("s5", "zzz", locZ, t0.Add(4*time.Minute)),
			scan("s6", "C300", locX, t0.Add(5*time.Minute)),
		},
	}
	rep := Compute(in)

	seen := map[string]int{}
	for _, it := range rep.Matched {
		seen[it.Scan.ID]++
	}
	for _, it := range rep.Unexpected {
		seen[it.Scan.ID]++
	}
	for _, it := range rep.Unknown {
		seen[it.Scan.ID]++
	}
	require.Len(t, seen, len(in.Scans))
	for id, n := range seen {
		assert.Equal(t, 1, n, "scan %s", id)
	}

	missing, unexpected, unknown, matched := rep.Totals()
	assert.Equal(t, 2, matched)    // s1, s3
	assert.Equal(t, 2, unexpected) // s2, s6
	assert.Equal(t, 2, unknown)    // s4, s5
	// B200 at LocationX, C300 at LocationZ
	assert.Equal(t, 2, missing)
	assert.Equal(t, "LocationX", rep.Missing[0].Location.Name)
	assert.Equal(t, "B200", rep.Missing[0].Article.Code)
	assert.Equal(t, "LocationZ", rep.Missing[1].Location.Name)

	// sorted by location name, then code
	assert.Equal(t, "s6", rep.Unexpected[0].Scan.ID)
	assert.Equal(t, "s2", rep.Unexpected[1].Scan.ID)
	assert.Equal(t, "s4", rep.Unknown[0].Scan.ID)

	require.Len(t, rep.ByLocation, 3)
	assert.Equal(t, "LocationX", rep.ByLocation[0].Location.Name)
	require.Len(t, rep.ByLocation[0].Scans, 3)
	assert.Equal(t, "s6", rep.ByLocation[0].Scans[0].ID, "newest first")
	assert.Equal(t, "s1", rep.ByLocation[0].Scans[2].ID)
}

func TestCompute_LocationScopeLimitsMissing(t *testing.T) {
	in := Input{
		Articles:      []models.Article{article("a1", "A100", locX, locY)},
		Locations:     []models.Location{locX, locY},
		LocationScope: []string{"ly"},
	}
	rep := Compute(in)
	require.Len(t, rep.Missing, 1)
	assert.Equal(t, "ly", rep.Missing[0].Location.ID)

	in.LocationScope = nil
	assert.Len(t, Compute(in).Missing, 2)
}

func TestCompute_UnknownLocationFallsBackToID(t *testing.T) {
	ghost := models.Location{ID: "ghost"}
	rep := Compute(Input{Scans: []models.ScanRecord{scan("s1", "X", ghost, t0)}})
	require.Len(t, rep.Unknown, 1)
	assert.Equal(t, "ghost", rep.Unknown[0].Location.Name)
	require.Len(t, rep.ByLocation, 1)
	assert.Equal(t, "ghost", rep.ByLocation[0].Location.Name)
}

func TestCompute_RepeatedScansAreEachReported(t *testing.T) {
	rep := Compute(Input{
		Articles:  []models.Article{article("a1", "A100", locX)},
		Locations: []models.Location{locX, locY},
		Scans: []models.ScanRecord{
			scan("s2", "A100", locY, t0),
			scan("s1", "A100", locY, t0),
		},
	})
	require.Len(t, rep.Unexpected, 2)
	assert.Equal(t, "s1", rep.Unexpected[0].Scan.ID)
	assert.Equal(t, "s2", rep.Unexpected[1].Scan.ID)
}

func TestMergeScans(t *testing.T) {
	r1 := "r1"
	local := []models.ScanRecord{
		func() models.ScanRecord {
			s := scan("s1", "A100", locX, t0)
			s.RemoteID = &r1
			s.IsSynced = true
			return s
		}(),
		scan("s2", "B200", locX, t0.Add(time.Minute)),
	}

	rid := func(id string) *string { return &id }
	remote := []models.ScanRecord{
		func() models.ScanRecord { s := scan("r1", "A100", locX, t0); s.RemoteID = rid("r1"); return s }(),
		// same code and capture time as s2, uploaded from elsewhere
		func() models.ScanRecord {
			s := scan("r2", " b200", locX, t0.Add(time.Minute))
			s.RemoteID = rid("r2")
			return s
		}(),
		func() models.ScanRecord { s := scan("r3", "C300", locY, t0); s.RemoteID = rid("r3"); return s }(),
		func() models.ScanRecord { s := scan("r3", "C300", locY, t0); s.RemoteID = rid("r3"); return s }(),
	}

	got := MergeScans(local, remote)
	require.Len(t, got, 3)
	assert.Equal(t, "s1", got[0].ID)
	assert.Equal(t, "s2", got[1].ID)
	assert.Equal(t, "r3", got[2].ID)

	assert.Len(t, MergeScans(nil, remote), 3)
	assert.Len(t, MergeScans(local, nil), 2)
}
