package models

import (
	"fmt"
	"strings"
	"time"
)

// Condition is the material condition ("etat") noted during a scan.
type Condition string

const (
	ConditionNone       Condition = ""
	ConditionGood       Condition = "BIEN"
	ConditionAverage    Condition = "MOYENNE"
	ConditionOutOfOrder Condition = "HORS_SERVICE"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNone, ConditionGood, ConditionAverage, ConditionOutOfOrder:
		return true
	}
	return false
}

// ScanSource tells how the code was captured.
type ScanSource string

const (
	SourceManual ScanSource = "manual"
	SourceCamera ScanSource = "camera"
)

func (s ScanSource) Valid() bool {
	return s == SourceManual || s == SourceCamera
}

// MaxScanImages is the number of image slots on a scan record.
const MaxScanImages = 3

// ScanRecord is one capture event, persisted locally until uploaded.
//
// ID is assigned locally and never changes. RemoteID is set once the first
// upload succeeds. A record with IsSynced && SyncedWithoutImage still needs
// an image-only upload.
type ScanRecord struct {
	ID                 string
	RemoteID           *string
	CampaignID         string
	GroupID            string
	LocationID         string
	Code               string
	ArticleID          *string
	Description        string
	Observation        string
	SerialNumber       string
	Condition          Condition
	CapturedAt         time.Time
	Source             ScanSource
	Latitude           *float64
	Longitude          *float64
	Images             []string
	IsSynced           bool
	SyncedWithoutImage bool
}

// NeedsImageRepair reports whether r is eligible for the image-only upload.
func (r ScanRecord) NeedsImageRepair() bool {
	return r.IsSynced && r.SyncedWithoutImage
}

// Label is used in user-facing failure messages.
func (r ScanRecord) Label() string {
	if r.Code == "" {
		return r.ID
	}
	return r.Code
}

// ScanInput carries the captured fields of a new scan.
type ScanInput struct {
	CampaignID   string
	GroupID      string
	LocationID   string
	Code         string
	ArticleID    *string
	Description  string
	Observation  string
	SerialNumber string
	Condition    Condition
	CapturedAt   time.Time
	Source       ScanSource
	Latitude     *float64
	Longitude    *float64
	Images       []string
}

// Validate checks the fields required to persist a scan.
func (in ScanInput) Validate() error {
	switch {
	case in.CampaignID == "":
		return fmt.Errorf("campaign is required")
	case in.GroupID == "":
		return fmt.Errorf("group is required")
	case in.LocationID == "":
		return fmt.Errorf("location is required")
	case strings.TrimSpace(in.Code) == "":
		return fmt.Errorf("code is required")
	case len(in.Images) > MaxScanImages:
		return fmt.Errorf("at most %d images, got %d", MaxScanImages, len(in.Images))
	case !in.Condition.Valid():
		return fmt.Errorf("unknown condition %q", in.Condition)
	case in.Source != "" && !in.Source.Valid():
		return fmt.Errorf("unknown source %q", in.Source)
	case (in.Latitude == nil) != (in.Longitude == nil):
		return fmt.Errorf("latitude and longitude go together")
	}
	return nil
}

// ScanFilter scopes scan listings. Empty fields do not filter.
type ScanFilter struct {
	CampaignID string
	GroupID    string
	LocationID string
	IsSynced   *bool
}

// SyncUpdate is the outcome of a successful upload for one record.
type SyncUpdate struct {
	ID                 string
	RemoteID           string
	SyncedWithoutImage bool
}
