package models

import "time"

// Snapshot is the cached reference dataset. It is replaced wholesale on
// every successful full sync.
type Snapshot struct {
	Campaigns  []Campaign
	Groups     []Group
	Locations  []Location
	Articles   []Article
	LastSyncAt *time.Time
}

// IsEmpty reports whether nothing was ever synced.
func (s Snapshot) IsEmpty() bool {
	return s.LastSyncAt == nil && len(s.Campaigns) == 0 && len(s.Groups) == 0 &&
		len(s.Locations) == 0 && len(s.Articles) == 0
}

// SyncSummary reports the outcome of a scan upload.
type SyncSummary struct {
	TotalCount  int
	SyncedCount int
	FailedCount int
	Errors      []string
}

// Fail records one failed record with its message.
func (s *SyncSummary) Fail(msg string) {
	s.FailedCount++
	s.Errors = append(s.Errors, msg)
}

// FailedSummary is the summary of a single-record operation that did not
// reach the network.
func FailedSummary(msg string) *SyncSummary {
	s := &SyncSummary{TotalCount: 1}
	s.Fail(msg)
	return s
}
