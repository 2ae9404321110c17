package sla

import (
	"fmt"
	"strings"
	"time"
)

// Granularity selects the calendar alignment used by the resampler.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityWeek
	GranularityMonth
)

var granularityNames = map[Granularity]string{
	GranularityDay:   "day",
	GranularityWeek:  "week",
	GranularityMonth: "month",
}

func (g Granularity) String() string { return granularityNames[g] }

// ParseGranularity maps a query-string value onto a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "day", "d":
		return GranularityDay, nil
	case "week", "w":
		return GranularityWeek, nil
	case "month", "m":
		return GranularityMonth, nil
	default:
		return GranularityDay, fmt.Errorf("unknown granularity %q", s)
	}
}

// AggMode selects how a metric column is aggregated.
// Rate is sum(boolean)/count(order); Mean is the arithmetic average of a
// duration column.
type AggMode int

const (
	ModeRate AggMode = iota
	ModeMean
)

func (m AggMode) String() string {
	if m == ModeMean {
		return "mean"
	}
	return "rate"
}

// GroupBy selects the organizational dimension for the overview summary.
type GroupBy int

const (
	GroupByWarehouse GroupBy = iota
	GroupByProvider
	GroupByCarrier
)

var groupByNames = map[GroupBy]string{
	GroupByWarehouse: "warehouse",
	GroupByProvider:  "provider",
	GroupByCarrier:   "carrier",
}

func (g GroupBy) String() string { return groupByNames[g] }

// ParseGroupBy maps a query-string value onto a GroupBy.
func ParseGroupBy(s string) (GroupBy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warehouse":
		return GroupByWarehouse, nil
	case "provider":
		return GroupByProvider, nil
	case "carrier":
		return GroupByCarrier, nil
	default:
		return GroupByWarehouse, fmt.Errorf("unknown group_by %q", s)
	}
}

// Direction states which side of a threshold is a breach. It is always
// caller-supplied; it is never inferred from a metric name.
type Direction int

const (
	HigherIsBetter Direction = iota
	LowerIsBetter
)

func (d Direction) String() string {
	if d == LowerIsBetter {
		return "lower_is_better"
	}
	return "higher_is_better"
}

// Record is one shipment event with its derived SLA fields. Timestamp
// fields are nil when the event has not occurred or the source column was
// absent. Derived fields are filled by Derive and are pure functions of
// the raw fields, so re-deriving never changes them.
type Record struct {
	OrderID       string
	Warehouse     string
	Provider      string
	Carrier       string
	Country       string
	ProvinceState string

	AuditTime     *time.Time
	ShipTime      *time.Time
	OnlineTime    *time.Time
	DeliveredTime *time.Time

	HoursToShip   *float64
	Is24hShip     bool
	HoursToOnline *float64
	Is48hOnline   bool
	HoursHandover *float64
	DaysTransit   *float64
}

// GroupValue returns the record's value for the given grouping dimension.
// Empty means the record does not belong to any group on that dimension.
func (r *Record) GroupValue(g GroupBy) string {
	switch g {
	case GroupByProvider:
		return r.Provider
	case GroupByCarrier:
		return r.Carrier
	default:
		return r.Warehouse
	}
}

// GroupSummary is one row of the overview table: a group value with its
// aggregated rate-or-mean, the number of contributing records, and a
// display label.
type GroupSummary struct {
	GroupValue string  `json:"group_value"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
	Label      string  `json:"label"`
}

// TrendPoint is one calendar bucket of a trend series.
type TrendPoint struct {
	BucketStart time.Time `json:"bucket_start"`
	Value       float64   `json:"value"`
	Trend       float64   `json:"trend"`
	Label       string    `json:"label,omitempty"`
}
