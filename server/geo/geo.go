package geo

import (
	"fmt"
	"math"
	"strconv"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const (
	EARTH_RADIUS_KM = 6371.0088

	DEFAULT_RADIUS_KM = 5.0
	MAX_RADIUS_KM     = 50.0
)

// BoundingBox is a lat/lng range in degrees. When FilterLng is false the
// longitude range covers the whole globe or wraps the antimeridian and should not be used.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	FilterLng      bool
}

// HasLocation reports whether a coordinate was actually captured; (0,0) means no location
func HasLocation(lat, lng float64) bool {
	return !(lat == 0 && lng == 0)
}

func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceKm returns the great circle distance between two points
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)

	return a.Distance(b).Radians() * EARTH_RADIUS_KM
}

// BoundingBoxAround returns a box that contains every point within 'radiusKm' of (lat, lng)
func BoundingBoxAround(lat, lng, radiusKm float64) BoundingBox {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lng))
	rect := s2.CapFromCenterAngle(center, s1.Angle(radiusKm/EARTH_RADIUS_KM)).RectBound()

	box := BoundingBox{
		MinLat: rect.Lo().Lat.Degrees(),
		MaxLat: rect.Hi().Lat.Degrees(),
	}

	if rect.Lng.IsFull() || rect.Lng.IsInverted() {
		return box
	}

	box.MinLng = s1.Angle(rect.Lng.Lo).Degrees()
	box.MaxLng = s1.Angle(rect.Lng.Hi).Degrees()
	box.FilterLng = true
	return box
}

// ClampRadiusKm applies the default & max radius to a requested search radius
func ClampRadiusKm(radiusKm float64) float64 {
	switch {
	case math.IsNaN(radiusKm) || radiusKm <= 0:
		return DEFAULT_RADIUS_KM
	case radiusKm > MAX_RADIUS_KM:
		return MAX_RADIUS_KM
	}
	return radiusKm
}

// FallbackAddress is used as the location description when no address could be resolved
func FallbackAddress(lat, lng float64) string {
	return fmt.Sprintf("Lat: %.6f, Lng: %.6f", lat, lng)
}

func MapLink(lat, lng float64) string {
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s",
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lng, 'f', -1, 64),
	)
}
