package geometry

import (
	"math"
)

// --- Geometry Helpers ---

// DistMeters returns the great-circle distance between two coordinates in meters.
func DistMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	r1, r2 := lat1*math.Pi/180, lat2*math.Pi/180

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	// --- handle dateline crossing ---
	for dLon > math.Pi {
		dLon -= 2 * math.Pi
	}
	for dLon < -math.Pi {
		dLon += 2 * math.Pi
	}

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(r1)*math.Cos(r2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BearingDeg returns the initial bearing from point 1 to point 2 in degrees,
// normalized to [0, 360).
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	r1, r2 := lat1*math.Pi/180, lat2*math.Pi/180
	dLon := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(r2)
	x := math.Cos(r1)*math.Sin(r2) - math.Sin(r1)*math.Cos(r2)*math.Cos(dLon)

	brg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(brg+360, 360)
}
