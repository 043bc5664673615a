package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

// resolveLocation accepts a location barcode or id and checks that the
// group is allowed to count there.
func (a *App) resolveLocation(g *models.Group, input string) (models.Location, error) {
	loc, ok := a.cache.LocationByBarcode(input)
	if !ok {
		loc, ok = a.cache.Location(input)
	}
	if !ok {
		return models.Location{}, fmt.Errorf("unknown location %q", input)
	}
	if len(g.Locations) > 0 && !slices.Contains(g.LocationIDs(), loc.ID) {
		return models.Location{}, fmt.Errorf("location %s is not assigned to group %s", loc.Name, g.Name)
	}
	return loc, nil
}

func parseCondition(s string) (models.Condition, error) {
	c := models.Condition(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("condition must be one of %s, %s, %s or empty",
			models.ConditionGood, models.ConditionAverage, models.ConditionOutOfOrder)
	}
	return c, nil
}

// Scan captures one article code at a location of the unlocked group and
// stores it locally until the next upload.
func (a *App) Scan(ctx context.Context) error {
	g, err := a.requireGroup()
	if err != nil {
		return err
	}

	locInput, err := getSimpleText(a.reader, "Location barcode or id", a.out)
	if err != nil {
		return err
	}
	loc, err := a.resolveLocation(g, locInput)
	if err != nil {
		return err
	}

	code, err := getSimpleText(a.reader, "Article code", a.out)
	if err != nil {
		return err
	}
	serial, err := getSimpleText(a.reader, "Serial number (optional)", a.out)
	if err != nil {
		return err
	}
	condInput, err := getSimpleText(a.reader, "Condition (BIEN, MOYENNE, HORS_SERVICE, optional)", a.out)
	if err != nil {
		return err
	}
	condition, err := parseCondition(condInput)
	if err != nil {
		return err
	}
	observation, err := getSimpleText(a.reader, "Observation (optional)", a.out)
	if err != nil {
		return err
	}
	images, err := getSimpleText(a.reader, "Image paths or URIs, comma separated (optional)", a.out)
	if err != nil {
		return err
	}

	rec, err := a.scanStore.Create(ctx, models.ScanInput{
		CampaignID:   g.CampaignID,
		GroupID:      g.ID,
		LocationID:   loc.ID,
		Code:         code,
		SerialNumber: serial,
		Condition:    condition,
		Observation:  observation,
		Source:       models.SourceManual,
		Images:       splitList(images),
	})
	if err != nil {
		return err
	}

	if rec.ArticleID == nil {
		a.printf("Saved scan %s: code %s is not in the catalogue\n", rec.ID, rec.Code)
	} else {
		a.printf("Saved scan %s: %s\n", rec.ID, rec.Description)
	}
	return nil
}
