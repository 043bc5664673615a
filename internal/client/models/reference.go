// Package models defines the client-side data models of the inventory
// counting app: the cached reference dataset and locally captured scans.
package models

import "time"

// Campaign is a bounded inventory-counting exercise.
type Campaign struct {
	ID        string
	Code      string
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
}

// UserRef identifies the user owning a group.
type UserRef struct {
	ID       string
	Username string
}

// LocationRef is the id+name summary used for parent links and article
// assignments.
type LocationRef struct {
	ID   string
	Name string
}

// Location is a physical place. Locations form a forest through Parent.
type Location struct {
	ID          string
	Name        string
	Description string
	Barcode     string
	Parent      *LocationRef
}

// Ref returns the id+name summary of l.
func (l Location) Ref() LocationRef {
	return LocationRef{ID: l.ID, Name: l.Name}
}

// Group is a counting team/device pairing scoped to one campaign.
//
// PINHash holds the argon2id hash of the group PIN (see cryptox); the clear
// PIN received from the API is never persisted. Locations are the authorized
// locations, materialized as full objects.
type Group struct {
	ID         string
	Name       string
	DeviceID   string
	Role       string
	CampaignID string
	User       UserRef
	PINHash    []byte
	Locations  []Location
}

// LocationIDs returns the ids of the authorized locations.
func (g Group) LocationIDs() []string {
	ids := make([]string, 0, len(g.Locations))
	for _, l := range g.Locations {
		ids = append(ids, l.ID)
	}
	return ids
}

// Article is a catalogue item identified by a scannable code. Locations
// lists every location where the article is expected to be found.
type Article struct {
	ID              string
	Code            string
	Description     string
	SerialNumber    string
	CurrentLocation *LocationRef
	Locations       []LocationRef
}

// ExpectedAt reports whether locationID is one of the article assignments.
func (a Article) ExpectedAt(locationID string) bool {
	for _, l := range a.Locations {
		if l.ID == locationID {
			return true
		}
	}
	return false
}
