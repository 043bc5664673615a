package reference

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

var _ Repository = (*SQLiteRepository)(nil)

var tables = []string{
	"article_locations", "articles", "group_locations", "groups", "locations", "campaigns",
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func refArgs(r *models.LocationRef) (any, any) {
	if r == nil {
		return nil, nil
	}
	return r.ID, r.Name
}

func ref(id, name sql.NullString) *models.LocationRef {
	if !id.Valid {
		return nil
	}
	return &models.LocationRef{ID: id.String, Name: name.String}
}

// Replace deletes the whole dataset and writes snap. LastSyncAt is not
// stored here (see metadata.KeyLastSyncAt).
func (r *SQLiteRepository) Replace(ctx context.Context, snap models.Snapshot) error {
	for _, table := range tables {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	campaigns := make([][]any, 0, len(snap.Campaigns))
	for _, c := range snap.Campaigns {
		campaigns = append(campaigns, []any{c.ID, c.Code, c.Name, formatTime(c.StartDate), formatTime(c.EndDate)})
	}
	if err := dbx.ExecBatch(ctx, r.db,
		`INSERT INTO campaigns (id, code, name, start_date, end_date) VALUES (?, ?, ?, ?, ?)`, campaigns); err != nil {
		return fmt.Errorf("failed to insert campaigns: %w", err)
	}

	locations := make([][]any, 0, len(snap.Locations))
	for _, l := range snap.Locations {
		pid, pname := refArgs(l.Parent)
		locations = append(locations, []any{l.ID, l.Name, l.Description, l.Barcode, pid, pname})
	}
	if err := dbx.ExecBatch(ctx, r.db,
		`INSERT INTO locations (id, name, description, barcode, parent_id, parent_name) VALUES (?, ?, ?, ?, ?, ?)`,
		locations); err != nil {
		return fmt.Errorf("failed to insert locations: %w", err)
	}

	var groups, groupLocations [][]any
	for _, g := range snap.Groups {
		groups = append(groups, []any{g.ID, g.Name, g.DeviceID, g.PINHash, g.Role, g.CampaignID, g.User.ID, g.User.Username})
		for i, l := range g.Locations {
			groupLocations = append(groupLocations, []any{g.ID, l.ID, i})
		}
	}
	if err := dbx.ExecBatch(ctx, r.db,
		`INSERT INTO groups (id, name, device_id, pin_hash, role, campaign_id, user_id, username) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		groups); err != nil {
		return fmt.Errorf("failed to insert groups: %w", err)
	}
	if err := dbx.ExecBatch(ctx, r.db,
		`INSERT INTO group_locations (group_id, location_id, position) VALUES (?, ?, ?)`, groupLocations); err != nil {
		return fmt.Errorf("failed to insert group locations: %w", err)
	}

	var articles, articleLocations [][]any
	for _, a := range snap.Articles {
		cid, cname := refArgs(a.CurrentLocation)
		articles = append(articles, []any{a.ID, a.Code, a.Description, a.SerialNumber, cid, cname})
		for i, l := range a.Locations {
			articleLocations = append(articleLocations, []any{a.ID, l.ID, l.Name, i})
		}
	}
	if err := dbx.ExecBatch(ctx, r.db,
		`INSERT INTO articles (id, code, description, serial_number, current_location_id, current_location_name) VALUES (?, ?, ?, ?, ?, ?)`,
		articles); err != nil {
		return fmt.Errorf("failed to insert articles: %w", err)
	}
	if err := dbx.ExecBatch(ctx, r.db,
		`INSERT INTO article_locations (article_id, location_id, location_name, position) VALUES (?, ?, ?, ?)`,
		articleLocations); err != nil {
		return fmt.Errorf("failed to insert article locations: %w", err)
	}

	return nil
}

// Load reads the whole dataset. Group locations are materialized from the
// locations table; an id with no location row keeps a name-less Location.
func (r *SQLiteRepository) Load(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	var err error

	if snap.Campaigns, err = r.loadCampaigns(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Locations, err = r.loadLocations(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Groups, err = r.loadGroups(ctx, snap.Locations); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Articles, err = r.loadArticles(ctx); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

func (r *SQLiteRepository) loadCampaigns(ctx context.Context) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, code, name, start_date, end_date FROM campaigns ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select campaigns: %w", err)
	}
	defer rows.Close()

	var result []models.Campaign
	for rows.Next() {
		var c models.Campaign
		var start, end sql.NullString
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		if c.StartDate, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("campaign %s start date: %w", c.ID, err)
		}
		if c.EndDate, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("campaign %s end date: %w", c.ID, err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) loadLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, barcode, parent_id, parent_name FROM locations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select locations: %w", err)
	}
	defer rows.Close()

	var result []models.Location
	for rows.Next() {
		var l models.Location
		var pid, pname sql.NullString
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.Barcode, &pid, &pname); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		l.Parent = ref(pid, pname)
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) loadGroups(ctx context.Context, locations []models.Location) ([]models.Group, error) {
	byID := make(map[string]models.Location, len(locations))
	for _, l := range locations {
		byID[l.ID] = l
	}

	members := make(map[string][]models.Location)
	lrows, err := r.db.QueryContext(ctx, `SELECT group_id, location_id FROM group_locations ORDER BY group_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to select group locations: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var gid, lid string
		if err := lrows.Scan(&gid, &lid); err != nil {
			return nil, fmt.Errorf("failed to scan group location: %w", err)
		}
		l, ok := byID[lid]
		if !ok {
			l = models.Location{ID: lid}
		}
		members[gid] = append(members[gid], l)
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, device_id, pin_hash, role, campaign_id, user_id, username FROM groups ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select groups: %w", err)
	}
	defer rows.Close()

	var result []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.DeviceID, &g.PINHash, &g.Role, &g.CampaignID, &g.User.ID, &g.User.Username); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		if len(g.PINHash) == 0 {
			g.PINHash = nil
		}
		g.Locations = members[g.ID]
		result = append(result, g)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) loadArticles(ctx context.Context) ([]models.Article, error) {
	assigned := make(map[string][]models.LocationRef)
	lrows, err := r.db.QueryContext(ctx,
		`SELECT article_id, location_id, location_name FROM article_locations ORDER BY article_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to select article locations: %w", err)
	}
	defer lrows.Close()
	for lrows.Next() {
		var aid string
		var l models.LocationRef
		if err := lrows.Scan(&aid, &l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan article location: %w", err)
		}
		assigned[aid] = append(assigned[aid], l)
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, description, serial_number, current_location_id, current_location_name FROM articles ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to select articles: %w", err)
	}
	defer rows.Close()

	var result []models.Article
	for rows.Next() {
		var a models.Article
		var cid, cname sql.NullString
		if err := rows.Scan(&a.ID, &a.Code, &a.Description, &a.SerialNumber, &cid, &cname); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.CurrentLocation = ref(cid, cname)
		a.Locations = assigned[a.ID]
		result = append(result, a)
	}
	return result, rows.Err()
}
