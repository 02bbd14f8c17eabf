package analytics

import (
	"github.com/golang/geo/s2"

	"github.com/anishjoni/predict-my-run/internal/domain"
)

// MapPoint is an activity start coordinate in degrees.
type MapPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ViewState is the initial camera for the point map.
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
}

// DefaultView centres on Toronto, where most activities are recorded.
var DefaultView = ViewState{Latitude: 43.6532, Longitude: -79.3832, Zoom: 11, Pitch: 15}

// MapPoints returns the start coordinates of every record that has both. Pairs
// outside the valid latitude/longitude range are dropped with the nulls.
func MapPoints(records []domain.ActivityRecord) []MapPoint {
	points := make([]MapPoint, 0, len(records))
	for _, rec := range records {
		if !rec.HasLocation() {
			continue
		}
		ll := s2.LatLngFromDegrees(*rec.StartLatitude, *rec.StartLongitude)
		if !ll.IsValid() {
			continue
		}
		points = append(points, MapPoint{Lat: *rec.StartLatitude, Lon: *rec.StartLongitude})
	}
	return points
}

// MapView centres DefaultView's zoom and pitch on the bounding rectangle of points.
func MapView(points []MapPoint) ViewState {
	if len(points) == 0 {
		return DefaultView
	}

	rect := s2.EmptyRect()
	for _, p := range points {
		rect = rect.AddPoint(s2.LatLngFromDegrees(p.Lat, p.Lon))
	}
	center := rect.Center()

	view := DefaultView
	view.Latitude = center.Lat.Degrees()
	view.Longitude = center.Lng.Degrees()
	return view
}
