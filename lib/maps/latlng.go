package maps

// LatLng is a geographical point in degrees. It crosses the bridge as JSON,
// hence the tags.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
