package domain

import "time"

// FacilityType classifies a facility node.
type FacilityType string

const (
	FacilityTypeStore  FacilityType = "STORE"
	FacilityTypeOffice FacilityType = "OFFICE"
)

// Facility is a node in the organizational tree. ParentID is a weak
// reference: the root facility has none, and parent edges must stay acyclic.
type Facility struct {
	ID        string
	Name      string
	Type      FacilityType
	ParentID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
