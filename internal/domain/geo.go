package domain

import (
	"math"
	"strings"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometres between two
// coordinates using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// PriceRating buckets an average price: 1 up to 5, 2 up to 15, 3 above.
func PriceRating(avg float64) int {
	switch {
	case avg <= 5:
		return 1
	case avg <= 15:
		return 2
	default:
		return 3
	}
}

// PriceSymbol renders a rating as a run of dollar signs.
func PriceSymbol(rating int) string {
	if rating < 1 {
		rating = 1
	}
	return strings.Repeat("$", rating)
}
