// Package geo validates observation coordinates and produces coarse geohashes
// for logs so that exact sighting locations are never recorded.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// LogPrecision keeps logged locations to roughly a 5 km cell.
const LogPrecision = 5

// ErrInvalidCoordinates is returned when a latitude or longitude is out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Point is a WGS84 location in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks lat is within [-90, 90] and lon within [-180, 180].
func (p Point) Validate() error {
	return ValidateCoordinates(p.Lat, p.Lon)
}

// ValidateCoordinates checks that lat and lon are finite and within range.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinates, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinates, lon)
	}
	return nil
}

// Encode encodes latitude and longitude into a geohash of the given length.
// A non-positive precision falls back to LogPrecision.
func Encode(lat, lon float64, precision int) string {
	if precision < 1 {
		precision = LogPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lonRange := [2]float64{-180.0, 180.0}

	var out strings.Builder
	out.Grow(precision)

	bits := 0
	var ch uint
	even := true
	for out.Len() < precision {
		if even {
			mid := (lonRange[0] + lonRange[1]) / 2
			if lon > mid {
				ch |= 1 << (4 - bits)
				lonRange[0] = mid
			} else {
				lonRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= 1 << (4 - bits)
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++
		if bits == 5 {
			out.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return out.String()
}

// Coarse returns the log-safe geohash for a point.
func (p Point) Coarse() string {
	return Encode(p.Lat, p.Lon, LogPrecision)
}
