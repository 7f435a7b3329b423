// Package location provides the static registry of monitored Ghana
// locations, name and proximity lookup, and upstream geocoding.
package location

import (
	"math"
	"strings"
)

// Kind classifies a registry entry.
type Kind string

const (
	KindRegion       Kind = "region"
	KindDistrict     Kind = "district"
	KindMunicipality Kind = "municipality"
	KindCommunity    Kind = "community"
)

// Location is a known place in the service area.
type Location struct {
	Name       string  `json:"name"`
	Kind       Kind    `json:"kind"`
	Region     string  `json:"region"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int     `json:"population,omitempty"`
	Timezone   string  `json:"tz"`
}

// DisplayName returns the canonical "Name, Region" form used as the location
// key throughout the service.
func (l Location) DisplayName() string {
	return l.Name + ", " + l.Region
}

// MaxServiceRadiusKm bounds how far a position may be from the nearest
// registry entry before it is treated as outside the service area.
const MaxServiceRadiusKm = 100.0

const tzAccra = "Africa/Accra"

var registry = []Location{
	// Greater Accra
	{Name: "Accra", Kind: KindMunicipality, Region: "Greater Accra", Lat: 5.6037, Lon: -0.187, Population: 2291000, Timezone: tzAccra},
	{Name: "Tema", Kind: KindMunicipality, Region: "Greater Accra", Lat: 5.6698, Lon: 0.0166, Population: 402637, Timezone: tzAccra},
	{Name: "Madina", Kind: KindCommunity, Region: "Greater Accra", Lat: 5.6847, Lon: -0.1676, Population: 137162, Timezone: tzAccra},
	{Name: "Ashaiman", Kind: KindMunicipality, Region: "Greater Accra", Lat: 5.6947, Lon: 0.0333, Population: 190972, Timezone: tzAccra},
	{Name: "Teshie", Kind: KindCommunity, Region: "Greater Accra", Lat: 5.5833, Lon: -0.1, Population: 171875, Timezone: tzAccra},
	{Name: "Nungua", Kind: KindCommunity, Region: "Greater Accra", Lat: 5.6, Lon: -0.0833, Population: 84119, Timezone: tzAccra},
	{Name: "Dansoman", Kind: KindCommunity, Region: "Greater Accra", Lat: 5.5333, Lon: -0.2667, Population: 127539, Timezone: tzAccra},

	// Ashanti
	{Name: "Kumasi", Kind: KindMunicipality, Region: "Ashanti", Lat: 6.6885, Lon: -1.6244, Population: 3348000, Timezone: tzAccra},
	{Name: "Obuasi", Kind: KindMunicipality, Region: "Ashanti", Lat: 6.2028, Lon: -1.6703, Population: 175043, Timezone: tzAccra},
	{Name: "Ejisu", Kind: KindDistrict, Region: "Ashanti", Lat: 6.7333, Lon: -1.3667, Population: 143762, Timezone: tzAccra},
	{Name: "Mampong", Kind: KindMunicipality, Region: "Ashanti", Lat: 7.0667, Lon: -1.4, Population: 88528, Timezone: tzAccra},
	{Name: "Konongo", Kind: KindCommunity, Region: "Ashanti", Lat: 6.6167, Lon: -1.2167, Population: 41238, Timezone: tzAccra},
	{Name: "Bekwai", Kind: KindMunicipality, Region: "Ashanti", Lat: 6.4667, Lon: -1.5833, Population: 118024, Timezone: tzAccra},

	// Northern
	{Name: "Tamale", Kind: KindMunicipality, Region: "Northern", Lat: 9.4008, Lon: -0.8393, Population: 950000, Timezone: tzAccra},
	{Name: "Yendi", Kind: KindMunicipality, Region: "Northern", Lat: 9.4425, Lon: -0.0108, Population: 117781, Timezone: tzAccra},
	{Name: "Savelugu", Kind: KindMunicipality, Region: "Northern", Lat: 9.6333, Lon: -0.8333, Population: 129283, Timezone: tzAccra},
	{Name: "Gushegu", Kind: KindDistrict, Region: "Northern", Lat: 10.0667, Lon: -0.3667, Population: 141360, Timezone: tzAccra},

	// Western
	{Name: "Sekondi-Takoradi", Kind: KindMunicipality, Region: "Western", Lat: 4.9333, Lon: -1.7667, Population: 445205, Timezone: tzAccra},
	{Name: "Tarkwa", Kind: KindMunicipality, Region: "Western", Lat: 5.3, Lon: -1.9833, Population: 56365, Timezone: tzAccra},
	{Name: "Axim", Kind: KindCommunity, Region: "Western", Lat: 4.8667, Lon: -2.2333, Population: 27719, Timezone: tzAccra},
	{Name: "Half Assini", Kind: KindCommunity, Region: "Western", Lat: 4.9833, Lon: -2.6167, Population: 28870, Timezone: tzAccra},

	// Central
	{Name: "Cape Coast", Kind: KindMunicipality, Region: "Central", Lat: 5.1053, Lon: -1.2466, Population: 169894, Timezone: tzAccra},
	{Name: "Elmina", Kind: KindCommunity, Region: "Central", Lat: 5.0833, Lon: -1.35, Population: 33576, Timezone: tzAccra},
	{Name: "Winneba", Kind: KindMunicipality, Region: "Central", Lat: 5.35, Lon: -0.6167, Population: 62016, Timezone: tzAccra},
	{Name: "Kasoa", Kind: KindMunicipality, Region: "Central", Lat: 5.5333, Lon: -0.4167, Population: 69649, Timezone: tzAccra},

	// Eastern
	{Name: "Koforidua", Kind: KindMunicipality, Region: "Eastern", Lat: 6.0833, Lon: -0.25, Population: 183727, Timezone: tzAccra},
	{Name: "Akosombo", Kind: KindCommunity, Region: "Eastern", Lat: 6.25, Lon: 0.05, Population: 26963, Timezone: tzAccra},
	{Name: "Nkawkaw", Kind: KindMunicipality, Region: "Eastern", Lat: 6.55, Lon: -0.7667, Population: 61785, Timezone: tzAccra},
	{Name: "Akim Oda", Kind: KindMunicipality, Region: "Eastern", Lat: 5.9333, Lon: -0.9833, Population: 61359, Timezone: tzAccra},

	// Volta
	{Name: "Ho", Kind: KindMunicipality, Region: "Volta", Lat: 6.6, Lon: 0.4667, Population: 180420, Timezone: tzAccra},
	{Name: "Keta", Kind: KindMunicipality, Region: "Volta", Lat: 5.9167, Lon: 0.9833, Population: 147618, Timezone: tzAccra},
	{Name: "Hohoe", Kind: KindMunicipality, Region: "Volta", Lat: 7.15, Lon: 0.4667, Population: 202423, Timezone: tzAccra},

	// Upper East
	{Name: "Bolgatanga", Kind: KindMunicipality, Region: "Upper East", Lat: 10.7856, Lon: -0.8506, Population: 131550, Timezone: tzAccra},
	{Name: "Navrongo", Kind: KindMunicipality, Region: "Upper East", Lat: 10.8958, Lon: -1.0944, Population: 27306, Timezone: tzAccra},
	{Name: "Bawku", Kind: KindMunicipality, Region: "Upper East", Lat: 11.0667, Lon: -0.2333, Population: 104212, Timezone: tzAccra},

	// Upper West
	{Name: "Wa", Kind: KindMunicipality, Region: "Upper West", Lat: 10.0606, Lon: -2.5, Population: 124414, Timezone: tzAccra},
	{Name: "Lawra", Kind: KindDistrict, Region: "Upper West", Lat: 10.65, Lon: -2.9, Population: 100929, Timezone: tzAccra},

	// Brong-Ahafo
	{Name: "Sunyani", Kind: KindMunicipality, Region: "Brong-Ahafo", Lat: 7.3333, Lon: -2.3333, Population: 248496, Timezone: tzAccra},
	{Name: "Techiman", Kind: KindMunicipality, Region: "Brong-Ahafo", Lat: 7.5833, Lon: -1.9333, Population: 206856, Timezone: tzAccra},
	{Name: "Berekum", Kind: KindMunicipality, Region: "Brong-Ahafo", Lat: 7.45, Lon: -2.5833, Population: 129628, Timezone: tzAccra},
}

// All returns every registry entry.
func All() []Location {
	out := make([]Location, len(registry))
	copy(out, registry)
	return out
}

// Regions returns the distinct region names in registry order.
func Regions() []string {
	seen := make(map[string]struct{})
	var regions []string
	for _, l := range registry {
		if _, ok := seen[l.Region]; ok {
			continue
		}
		seen[l.Region] = struct{}{}
		regions = append(regions, l.Region)
	}
	return regions
}

// ByRegion returns the registry entries for a region.
func ByRegion(region string) []Location {
	var out []Location
	for _, l := range registry {
		if l.Region == region {
			out = append(out, l)
		}
	}
	return out
}

// RegionalCapitals returns the most populous entry of each region, in
// registry region order. These are the default cache-warming targets.
func RegionalCapitals() []Location {
	var out []Location
	for _, region := range Regions() {
		var capital Location
		for _, l := range ByRegion(region) {
			if l.Population > capital.Population {
				capital = l
			}
		}
		out = append(out, capital)
	}
	return out
}

// Find resolves a free-text location query against the registry. Only the
// leading comma-segment of the query is considered ("Accra, Greater Accra"
// matches on "Accra"), case-insensitively. A miss is a normal outcome, not
// an error.
func Find(query string) (Location, bool) {
	name := query
	if i := strings.Index(query, ","); i >= 0 {
		name = query[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Location{}, false
	}

	for _, l := range registry {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Location{}, false
}

// Nearest returns the registry entry closest to the given position and its
// distance in kilometres. Positions more than MaxServiceRadiusKm from every
// entry are outside the service area and report ok=false.
func Nearest(lat, lon float64) (Location, float64, bool) {
	var closest Location
	minKm := math.Inf(1)

	for _, l := range registry {
		if d := HaversineKm(lat, lon, l.Lat, l.Lon); d < minKm {
			minKm = d
			closest = l
		}
	}

	if minKm > MaxServiceRadiusKm {
		return Location{}, minKm, false
	}
	return closest, minKm, true
}

// HaversineKm computes the great-circle distance between two coordinates.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
