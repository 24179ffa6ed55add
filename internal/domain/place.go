package domain

// Availability reports whether a place amenity is present, absent, or unknown.
type Availability string

const (
	AvailabilityTrue         Availability = "TRUE"
	AvailabilityFalse        Availability = "FALSE"
	AvailabilityNotAvailable Availability = "NOT_AVAILABLE"
)

// Location is a geographic point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PriceRange is the advertised price band for a place.
type PriceRange struct {
	Lower string `json:"lower,omitempty"`
	Upper string `json:"upper,omitempty"`
}

// Relevance is a scoring oracle verdict for one place: an estimate in
// [1.0, 10.0] plus the oracle's stated reason.
type Relevance struct {
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason"`
}

// Place is one candidate returned by the place lookup. It is attached to a
// search at creation and never mutated afterwards; within a search a place is
// identified by its index in the place list.
type Place struct {
	ID               string       `json:"id"`
	DisplayName      string       `json:"displayName"`
	FormattedAddress string       `json:"formattedAddress,omitempty"`
	Location         Location     `json:"location"`
	Rating           float64      `json:"rating,omitempty"`
	UserRatingCount  int          `json:"userRatingCount,omitempty"`
	Types            []string     `json:"types,omitempty"`
	GoogleMapsURI    string       `json:"googleMapsUri,omitempty"`
	WebsiteURI       string       `json:"websiteUri,omitempty"`
	GoodForChildren  Availability `json:"goodForChildren,omitempty"`
	GoodForGroups    Availability `json:"goodForGroups,omitempty"`
	LiveMusic        Availability `json:"liveMusic,omitempty"`
	OutdoorSeating   Availability `json:"outdoorSeating,omitempty"`
	DineIn           Availability `json:"dineIn,omitempty"`
	Reservable       Availability `json:"reservable,omitempty"`
	PriceLevel       string       `json:"priceLevel,omitempty"`
	PriceRange       *PriceRange  `json:"priceRange,omitempty"`
}
