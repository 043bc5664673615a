// Package reference persists the cached reference dataset (campaigns,
// groups, locations, articles and their assignments).
//
// Replace rewrites every table; callers run it inside dbx.WithTx so that a
// failure leaves the previous dataset untouched. Load returns rows in
// insertion order, so a Load after Replace yields the slices that were
// written.
package reference

import (
	"context"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

type Repository interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Replace(ctx context.Context, snap models.Snapshot) error
}
