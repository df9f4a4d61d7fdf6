package domain

import (
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Coordinates decodes the observation's geohash to the center of its cell.
// ok is false when the geohash contains characters outside the base32
// alphabet; such records are still valid observations.
func (o Observation) Coordinates() (lat, lon float64, ok bool) {
	gh := strings.ToLower(o.Geohash)
	if gh == "" {
		return 0, 0, false
	}
	for _, c := range gh {
		if !strings.ContainsRune(geohashAlphabet, c) {
			return 0, 0, false
		}
	}

	center := geohash.Decode(gh).Center()
	return center.Lat(), center.Lng(), true
}
