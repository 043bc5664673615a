package scans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/dbx"
)

// ErrNotFound is returned by MarkSynced when no row has the given id.
var ErrNotFound = errors.New("scan not found")

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var _ Repository = (*SQLiteRepository)(nil)

// timeLayout is fixed-width so that captured_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const columns = `id, remote_id, campaign_id, group_id, location_id, code, article_id,
	description, observation, serial_number, etat, captured_at, source,
	latitude, longitude, image1, image2, image3, is_synced, synced_without_image`

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func imageSlot(images []string, i int) sql.NullString {
	if i < len(images) {
		return sql.NullString{String: images[i], Valid: true}
	}
	return sql.NullString{}
}

func (r *SQLiteRepository) Create(ctx context.Context, s *models.ScanRecord) error {
	if len(s.Images) > models.MaxScanImages {
		return fmt.Errorf("too many images: %d", len(s.Images))
	}
	query := `INSERT INTO scans (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, nullString(s.RemoteID), s.CampaignID, s.GroupID, s.LocationID, s.Code, nullString(s.ArticleID),
		s.Description, s.Observation, s.SerialNumber, string(s.Condition),
		s.CapturedAt.UTC().Format(timeLayout), string(s.Source),
		nullFloat(s.Latitude), nullFloat(s.Longitude),
		imageSlot(s.Images, 0), imageSlot(s.Images, 1), imageSlot(s.Images, 2),
		s.IsSynced, s.SyncedWithoutImage)
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.ScanRecord, error) {
	var (
		s                  models.ScanRecord
		remoteID, article  sql.NullString
		capturedAt         string
		etat, source       string
		lat, lng           sql.NullFloat64
		img1, img2, img3   sql.NullString
		synced, withoutImg bool
	)
	err := row.Scan(&s.ID, &remoteID, &s.CampaignID, &s.GroupID, &s.LocationID, &s.Code, &article,
		&s.Description, &s.Observation, &s.SerialNumber, &etat, &capturedAt, &source,
		&lat, &lng, &img1, &img2, &img3, &synced, &withoutImg)
	if err != nil {
		return nil, err
	}

	if remoteID.Valid {
		s.RemoteID = &remoteID.String
	}
	if article.Valid {
		s.ArticleID = &article.String
	}
	if lat.Valid {
		s.Latitude = &lat.Float64
	}
	if lng.Valid {
		s.Longitude = &lng.Float64
	}
	for _, img := range []sql.NullString{img1, img2, img3} {
		if img.Valid && img.String != "" {
			s.Images = append(s.Images, img.String)
		}
	}

	s.CapturedAt, err = time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("scan %s: bad captured_at: %w", s.ID, err)
	}
	s.Condition = models.Condition(etat)
	s.Source = models.ScanSource(source)
	s.IsSynced = synced
	s.SyncedWithoutImage = withoutImg
	return &s, nil
}

// GetByID returns nil, nil when no scan has the id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.ScanRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM scans WHERE id = ?`, id)
	s, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan %s: %w", id, err)
	}
	return s, nil
}

func where(f models.ScanFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if f.CampaignID != "" {
		add("campaign_id = ?", f.CampaignID)
	}
	if f.GroupID != "" {
		add("group_id = ?", f.GroupID)
	}
	if f.LocationID != "" {
		add("location_id = ?", f.LocationID)
	}
	if f.IsSynced != nil {
		add("is_synced = ?", *f.IsSynced)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLiteRepository) List(ctx context.Context, f models.ScanFilter) ([]models.ScanRecord, error) {
	cond, args := where(f)
	rows, err := r.db.QueryContext(ctx, `SELECT `+columns+` FROM scans`+cond+` ORDER BY captured_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select scans: %w", err)
	}
	defer rows.Close()

	var result []models.ScanRecord
	for rows.Next() {
		s, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context, f models.ScanFilter) (int, error) {
	cond, args := where(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`+cond, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count scans: %w", err)
	}
	return n, nil
}

// MarkSynced flags one record as uploaded. The remote id is kept when
// u.RemoteID is empty (image-only repair).
func (r *SQLiteRepository) MarkSynced(ctx context.Context, u models.SyncUpdate) error {
	query := `UPDATE scans SET is_synced = 1, synced_without_image = ?,
		remote_id = COALESCE(NULLIF(?, ''), remote_id) WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, u.SyncedWithoutImage, u.RemoteID, u.ID)
	if err != nil {
		return fmt.Errorf("failed to mark scan %s synced: %w", u.ID, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("mark scan %s synced: %w", u.ID, ErrNotFound)
	}
	return nil
}
