package sla

import (
	"strings"
	"time"
)

// Windows holds the SLA time windows and outlier bounds used when
// deriving per-record fields.
type Windows struct {
	ShipHours   float64 // ship-within window, hours from audit
	OnlineHours float64 // online-within window, hours from audit
	TransitMin  float64 // minimum plausible transit, days
	TransitMax  float64 // maximum plausible transit, days
}

// DefaultWindows returns the standard 24h ship / 48h online windows with
// the 0–30 day transit outlier bounds.
func DefaultWindows() Windows {
	return Windows{ShipHours: 24, OnlineHours: 48, TransitMin: 0, TransitMax: 30}
}

// Derive fills the record's derived fields from its raw timestamps.
// Missing inputs propagate as nil durations, never as errors. A duration
// is compliant only on (0, window]: zero or negative durations come from
// clock skew and must not count as instantly compliant.
func Derive(r *Record, w Windows) {
	r.HoursToShip = hoursBetween(r.AuditTime, r.ShipTime)
	r.Is24hShip = withinWindow(r.HoursToShip, w.ShipHours)

	r.HoursToOnline = hoursBetween(r.AuditTime, r.OnlineTime)
	r.Is48hOnline = withinWindow(r.HoursToOnline, w.OnlineHours)

	r.HoursHandover = hoursBetween(r.ShipTime, r.OnlineTime)

	if d := hoursBetween(r.ShipTime, r.DeliveredTime); d != nil {
		days := *d / 24
		r.DaysTransit = &days
	} else {
		r.DaysTransit = nil
	}

	r.Provider = ProviderOf(r.Warehouse)
}

// DeriveAll derives every record in place and returns the slice.
func DeriveAll(records []Record, w Windows) []Record {
	for i := range records {
		Derive(&records[i], w)
	}
	return records
}

// ProviderOf extracts the provider prefix of a warehouse code: the part
// before the first "-", or the whole code when there is no delimiter.
func ProviderOf(warehouse string) string {
	if i := strings.Index(warehouse, "-"); i >= 0 {
		return warehouse[:i]
	}
	return warehouse
}

func hoursBetween(from, to *time.Time) *float64 {
	if from == nil || to == nil {
		return nil
	}
	h := to.Sub(*from).Hours()
	return &h
}

func withinWindow(hours *float64, window float64) bool {
	return hours != nil && *hours > 0 && *hours <= window
}
