package models

// LocationItem is one entry of the known-location listing.
type LocationItem struct {
	Name       string `json:"name"`
	Display    string `json:"display"`
	Kind       string `json:"kind"`
	Region     string `json:"region"`
	Point      Point  `json:"point"`
	Population int    `json:"population,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

// LocationsResponse is the registry listing.
type LocationsResponse struct {
	Items   []LocationItem `json:"items"`
	Regions []string       `json:"regions"`
	Count   int            `json:"count"`
}

// NearestLocationResponse maps a coordinate to the nearest known location.
type NearestLocationResponse struct {
	Location   LocationItem `json:"location"`
	DistanceKm float64      `json:"distanceKm"`
}
