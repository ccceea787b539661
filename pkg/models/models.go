package models

// Airport is one record from the airport dataset. Distance is filled in
// during a radius search with the great-circle distance from the search
// origin, in kilometers.
type Airport struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Distance float64 `json:"distance,omitempty"`
}
