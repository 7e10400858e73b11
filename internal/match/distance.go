package match

import (
	"math"

	"github.com/twpayne/go-geom"
)

// EarthRadiusKM is the sphere radius used for great-circle distance.
const EarthRadiusKM = 6371.0

// Point builds an XY point in lng/lat order.
func Point(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat})
}

// HaversineKM is the great-circle distance between two lng/lat points.
func HaversineKM(a, b *geom.Point) float64 {
	lat1, lat2 := radians(a.Y()), radians(b.Y())
	dLat := lat2 - lat1
	dLng := radians(b.X() - a.X())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
