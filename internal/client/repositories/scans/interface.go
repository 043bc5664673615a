package scans

import (
	"context"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

type Repository interface {
	Create(ctx context.Context, r *models.ScanRecord) error
	GetByID(ctx context.Context, id string) (*models.ScanRecord, error)
	List(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error)
	Count(ctx context.Context, f models.ScanFilter) (int, error)
	MarkSynced(ctx context.Context, u models.SyncUpdate) error
}
