package industries

import (
	"math"
	"strings"
)

type coord struct{ lat, lon float64 }

// places are the named locations the accommodation finder can measure
// distance from.
var places = []struct {
	name string
	at   coord
}{
	{"auckland", coord{-36.8509, 174.7645}},
	{"wellington", coord{-41.2865, 174.7762}},
	{"christchurch", coord{-43.5321, 172.6362}},
	{"queenstown", coord{-45.0302, 168.6616}},
	{"rotorua", coord{-38.1368, 176.2497}},
	{"taupo", coord{-38.6857, 176.0702}},
	{"wanaka", coord{-44.7032, 169.1304}},
	{"napier", coord{-39.4928, 176.9120}},
	{"coromandel", coord{-36.8262, 175.7907}},
	{"mt cook", coord{-43.7362, 170.0964}},
	{"dunedin", coord{-45.8788, 170.5028}},
	{"nelson", coord{-41.2706, 173.2840}},
	{"hamilton", coord{-37.7870, 175.2793}},
	{"tauranga", coord{-37.6878, 176.1651}},
	{"invercargill", coord{-46.4132, 168.3538}},
	{"lake tekapo", coord{-44.0025, 170.4774}},
}

// locate resolves a spoken location to coordinates: exact name first, then
// either name containing the other.
func locate(location string) (coord, bool) {
	l := strings.ToLower(strings.TrimSpace(location))
	if l == "" {
		return coord{}, false
	}
	for _, p := range places {
		if p.name == l {
			return p.at, true
		}
	}
	for _, p := range places {
		if strings.Contains(l, p.name) || strings.Contains(p.name, l) {
			return p.at, true
		}
	}
	return coord{}, false
}

const earthRadiusKm = 6371

// haversine returns the great-circle distance in kilometres.
func haversine(a, b coord) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }

	dlat := rad(b.lat - a.lat)
	dlon := rad(b.lon - a.lon)
	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rad(a.lat))*math.Cos(rad(b.lat))*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
