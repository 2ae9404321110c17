package sla

import (
	"fmt"
	"time"
)

// Column identifies a source column of the input table.
type Column int

const (
	ColOrderID Column = iota
	ColWarehouse
	ColCarrier
	ColCountry
	ColProvinceState
	ColAudit
	ColShipped
	ColOnline
	ColDelivered
)

// Availability records which source columns the loaded dataset carries.
// It is computed once at load time; a metric whose source columns are
// missing is simply not computable for that dataset rather than failing
// the whole upload.
type Availability struct {
	OrderID       bool `json:"order_id"`
	Warehouse     bool `json:"warehouse"`
	Carrier       bool `json:"carrier"`
	Country       bool `json:"country"`
	ProvinceState bool `json:"province_state"`
	Audit         bool `json:"time_audit"`
	Shipped       bool `json:"time_shipped"`
	Online        bool `json:"time_online"`
	Delivered     bool `json:"time_delivered"`
}

// Has reports whether the dataset carries the given column.
func (a Availability) Has(c Column) bool {
	switch c {
	case ColOrderID:
		return a.OrderID
	case ColWarehouse:
		return a.Warehouse
	case ColCarrier:
		return a.Carrier
	case ColCountry:
		return a.Country
	case ColProvinceState:
		return a.ProvinceState
	case ColAudit:
		return a.Audit
	case ColShipped:
		return a.Shipped
	case ColOnline:
		return a.Online
	case ColDelivered:
		return a.Delivered
	}
	return false
}

// Metric describes one SLA metric: how to read it off a record, how it
// aggregates, which direction a threshold breach points, and the default
// reference values for the overview and trend views.
type Metric struct {
	Name         string    `json:"name"`
	Mode         AggMode   `json:"-"`
	Direction    Direction `json:"-"`
	Unit         string    `json:"unit"` // "%" for rates, "h"/"d" for durations
	BarThreshold float64   `json:"bar_threshold"`
	TrendTarget  float64   `json:"trend_target"`

	requires   []Column
	bucketTime func(*Record) *time.Time
	boolValue  func(*Record) (bool, bool)
	floatValue func(*Record) (float64, bool)
}

// ComputableWith reports whether all source columns the metric needs are
// present in the dataset.
func (m Metric) ComputableWith(a Availability) bool {
	for _, c := range m.requires {
		if !a.Has(c) {
			return false
		}
	}
	return true
}

// BucketTime returns the timestamp the resampler buckets this metric on,
// or nil when the record cannot be placed on the time axis.
func (m Metric) BucketTime(r *Record) *time.Time { return m.bucketTime(r) }

// BoolValue returns the compliance flag for a rate metric. ok is false
// when the record's duration is unresolvable, in which case the record
// contributes to neither numerator nor group count.
func (m Metric) BoolValue(r *Record) (value, ok bool) {
	if m.boolValue == nil {
		return false, false
	}
	return m.boolValue(r)
}

// FloatValue returns the duration observation for a mean metric. ok is
// false for missing or out-of-bounds (outlier) values, which are dropped
// from the statistics rather than clamped.
func (m Metric) FloatValue(r *Record) (value float64, ok bool) {
	if m.floatValue == nil {
		return 0, false
	}
	return m.floatValue(r)
}

// FormatValue renders a metric value for labels: one-decimal percentage
// for rates, one-decimal duration with its unit otherwise.
func (m Metric) FormatValue(v float64) string {
	if m.Mode == ModeRate {
		return fmt.Sprintf("%.1f%%", v*100)
	}
	return fmt.Sprintf("%.1f%s", v, m.Unit)
}

// Thresholds carries the configured reference values fed into the metric
// registry.
type Thresholds struct {
	ShipRateBar         float64
	ShipRateTarget      float64
	OnlineRateBar       float64
	OnlineRateTarget    float64
	HandoverHoursBar    float64
	HandoverHoursTarget float64
	TransitDaysBar      float64
	TransitDaysTarget   float64
}

// DefaultThresholds mirrors the dashboard reference lines: 75% / 90%
// bars for the ship and online rates with a 95% trend target, and a 24h
// handover bar and target.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShipRateBar:         0.75,
		ShipRateTarget:      0.95,
		OnlineRateBar:       0.90,
		OnlineRateTarget:    0.95,
		HandoverHoursBar:    24,
		HandoverHoursTarget: 24,
		TransitDaysBar:      7,
		TransitDaysTarget:   7,
	}
}

// MetricSet is the closed registry of metrics this engine derives.
type MetricSet struct {
	windows Windows
	metrics map[string]Metric
	order   []string
}

// NewMetricSet builds the registry from the configured windows and
// thresholds.
func NewMetricSet(w Windows, t Thresholds) *MetricSet {
	ms := &MetricSet{windows: w, metrics: make(map[string]Metric)}

	ms.add(Metric{
		Name:         "ship_24h",
		Mode:         ModeRate,
		Direction:    HigherIsBetter,
		Unit:         "%",
		BarThreshold: t.ShipRateBar,
		TrendTarget:  t.ShipRateTarget,
		requires:     []Column{ColAudit, ColShipped},
		bucketTime:   func(r *Record) *time.Time { return r.AuditTime },
		boolValue: func(r *Record) (bool, bool) {
			return r.Is24hShip, r.HoursToShip != nil
		},
	})

	ms.add(Metric{
		Name:         "online_48h",
		Mode:         ModeRate,
		Direction:    HigherIsBetter,
		Unit:         "%",
		BarThreshold: t.OnlineRateBar,
		TrendTarget:  t.OnlineRateTarget,
		requires:     []Column{ColAudit, ColOnline},
		bucketTime:   func(r *Record) *time.Time { return r.AuditTime },
		boolValue: func(r *Record) (bool, bool) {
			return r.Is48hOnline, r.HoursToOnline != nil
		},
	})

	ms.add(Metric{
		Name:         "handover_hours",
		Mode:         ModeMean,
		Direction:    LowerIsBetter,
		Unit:         "h",
		BarThreshold: t.HandoverHoursBar,
		TrendTarget:  t.HandoverHoursTarget,
		requires:     []Column{ColShipped, ColOnline},
		bucketTime:   func(r *Record) *time.Time { return r.ShipTime },
		floatValue: func(r *Record) (float64, bool) {
			// Zero or negative handover means the online scan predates the
			// ship scan; invalid, not a zero-duration handover.
			if r.HoursHandover == nil || *r.HoursHandover <= 0 {
				return 0, false
			}
			return *r.HoursHandover, true
		},
	})

	transitMin, transitMax := w.TransitMin, w.TransitMax
	ms.add(Metric{
		Name:         "transit_days",
		Mode:         ModeMean,
		Direction:    LowerIsBetter,
		Unit:         "d",
		BarThreshold: t.TransitDaysBar,
		TrendTarget:  t.TransitDaysTarget,
		requires:     []Column{ColShipped, ColDelivered},
		bucketTime:   func(r *Record) *time.Time { return r.ShipTime },
		floatValue: func(r *Record) (float64, bool) {
			if r.DaysTransit == nil {
				return 0, false
			}
			if *r.DaysTransit < transitMin || *r.DaysTransit > transitMax {
				return 0, false
			}
			return *r.DaysTransit, true
		},
	})

	return ms
}

func (ms *MetricSet) add(m Metric) {
	ms.metrics[m.Name] = m
	ms.order = append(ms.order, m.Name)
}

// Get looks a metric up by name.
func (ms *MetricSet) Get(name string) (Metric, error) {
	m, ok := ms.metrics[name]
	if !ok {
		return Metric{}, fmt.Errorf("unknown metric %q", name)
	}
	return m, nil
}

// Windows returns the windows the registry was built with.
func (ms *MetricSet) Windows() Windows { return ms.windows }

// Names returns the metric names in registration order.
func (ms *MetricSet) Names() []string {
	out := make([]string, len(ms.order))
	copy(out, ms.order)
	return out
}

// Computable returns the metrics computable against the given dataset
// availability, in registration order.
func (ms *MetricSet) Computable(a Availability) []Metric {
	var out []Metric
	for _, name := range ms.order {
		if m := ms.metrics[name]; m.ComputableWith(a) {
			out = append(out, m)
		}
	}
	return out
}
