// Package restriction evaluates the opt-in placement gates on a
// transfer: a circular geofence and a recurring daily time window.
// Both checks are pure; an absent fence, window or placement context
// means no restriction applies.
package restriction

import (
	"fmt"
	"math"
	"time"

	"github.com/nrattyp233/money-buddy---geo-safe/internal/ledger"
	"github.com/nrattyp233/money-buddy---geo-safe/internal/models"
)

const earthRadiusKm = 6371

// Point is the placement context supplied by the caller at send time.
type Point struct {
	Lat float64
	Lng float64
}

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// WithinGeofence reports whether the placement point falls inside the
// fence. A nil fence or nil point skips the check.
func WithinGeofence(fence *models.GeoFence, point *Point) bool {
	if fence == nil || point == nil {
		return true
	}
	return HaversineKm(fence.Lat, fence.Lng, point.Lat, point.Lng) <= fence.RadiusKm
}

// WithinTimeWindow reports whether now's clock time falls inside the
// recurring daily window. Start == End means the window is unbounded;
// End before Start wraps past midnight (22:00–06:00 allows 23:30).
func WithinTimeWindow(tr *models.TimeRestriction, now time.Time) (bool, error) {
	if tr == nil {
		return true, nil
	}
	start, err := parseClock(tr.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(tr.End)
	if err != nil {
		return false, err
	}
	if start == end {
		return true, nil
	}
	cur := now.Hour()*60 + now.Minute()
	if start < end {
		return cur >= start && cur < end, nil
	}
	return cur >= start || cur < end, nil
}

// parseClock converts "HH:MM" to minutes since midnight. The whole
// string must be a valid clock time; trailing text is rejected.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad clock time %q", ledger.ErrInvalidArgument, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
