package geo

import (
	"context"
	"math"
)

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Resolver yields the haul distance in kilometers between two points.
type Resolver interface {
	DistanceKm(ctx context.Context, origin, destination Point) (float64, error)
}

// HaversineResolver computes great-circle distance locally.
type HaversineResolver struct{}

// DistanceKm implements Resolver using the haversine formula.
func (HaversineResolver) DistanceKm(_ context.Context, origin, destination Point) (float64, error) {
	return HaversineKm(origin, destination), nil
}

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(a, b Point) float64 {
	latA := radians(a.Latitude)
	latB := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLng := radians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLng*sinLng

	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
