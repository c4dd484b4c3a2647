package domain

// SubjectID is the authenticated subject extracted from JWT claims (typically "sub").
// Trips are owned by a subject; the format is controlled by the IdP.
type SubjectID string

// TripID is the identifier of a persisted trip.
type TripID string

// CityID identifies one stop within a trip's itinerary. It is unique per itinerary
// and never changes after the stop is created.
type CityID string
