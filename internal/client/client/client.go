package client

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/models"
)

// Client is the contract of the remote inventory API.
type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Login(ctx context.Context, username, password string) (string, error)
	Campaigns(ctx context.Context) ([]models.Campaign, error)
	Groups(ctx context.Context, role string) ([]GroupRow, error)
	Locations(ctx context.Context) ([]models.Location, error)
	Articles(ctx context.Context, page, pageSize int) (*ArticlePage, error)
	Scans(ctx context.Context, campaignID, groupID string) ([]models.ScanRecord, error)
	SyncScans(ctx context.Context, scans []ScanPayload) ([]SyncResult, error)
	SyncScanImages(ctx context.Context, images []ImagePayload) ([]SyncResult, error)
}

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// GroupRow is a group as returned by the API: the clear PIN and the ids of
// its authorized locations.
type GroupRow struct {
	ID          string
	Name        string
	DeviceID    string
	PIN         string
	Role        string
	CampaignID  string
	User        models.UserRef
	LocationIDs []string
}

// ArticleRow is one row of a paginated article listing. The same article
// may appear on several rows, one per assignment set.
type ArticleRow struct {
	ID              string
	Code            string
	Description     string
	SerialNumber    string
	CurrentLocation *models.LocationRef
	Locations       []models.LocationRef
}

type ArticlePage struct {
	Rows       []ArticleRow
	Page       int
	TotalPages int
}

// ImageData is one compressed image ready for upload.
type ImageData struct {
	Data     string `json:"data"` // base64 JPEG
	MimeType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// ScanPayload is the upload form of a local scan record, keyed by its local id.
type ScanPayload struct {
	LocalID      string      `json:"localId"`
	CampaignID   string      `json:"campaignId"`
	GroupID      string      `json:"groupId"`
	LocationID   string      `json:"locationId"`
	Code         string      `json:"code"`
	ArticleID    *string     `json:"articleId,omitempty"`
	Description  string      `json:"description,omitempty"`
	Observation  string      `json:"observation,omitempty"`
	SerialNumber string      `json:"serialNumber,omitempty"`
	Etat         string      `json:"etat,omitempty"`
	CapturedAt   time.Time   `json:"capturedAt"`
	Source       string      `json:"source"`
	Latitude     *float64    `json:"latitude,omitempty"`
	Longitude    *float64    `json:"longitude,omitempty"`
	Images       []ImageData `json:"images"`
}

// ImagePayload attaches images to an already uploaded scan.
type ImagePayload struct {
	LocalID  string      `json:"localId"`
	RemoteID string      `json:"remoteId"`
	Images   []ImageData `json:"images"`
}

type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// SyncResult is the per-record outcome of an upload mutation.
type SyncResult struct {
	LocalID  string       `json:"localId"`
	Success  bool         `json:"success"`
	RemoteID string       `json:"remoteId"`
	Errors   []FieldError `json:"errors"`
}

// FormatFieldErrors joins field errors as "field: m1, m2; other: m3".
func FormatFieldErrors(errs []FieldError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := strings.Join(e.Messages, ", ")
		if e.Field != "" {
			msg = e.Field + ": " + msg
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// Reason is a readable explanation of a failed result.
func (r SyncResult) Reason() string {
	if msg := FormatFieldErrors(r.Errors); msg != "" {
		return msg
	}
	if r.Success && r.RemoteID == "" {
		return "no remote id returned"
	}
	return "rejected by server"
}
