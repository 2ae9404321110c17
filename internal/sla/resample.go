package sla

import (
	"fmt"
	"sort"
	"time"
)

// rollingWindow is the trailing bucket count for daily trend smoothing.
const rollingWindow = 7

// Resample re-buckets a record set (already restricted to one group
// value) onto calendar-aligned periods and derives the smoothed trend
// series.
//
// Rate mode divides the compliant count by the count of non-empty order
// IDs per bucket; buckets with a zero denominator are dropped entirely
// rather than shown as 0%, so an empty weekend reads as no data.
// Mean mode averages the metric's valid observations and
// drops empty buckets the same way. Output is ascending by bucket
// start.
func Resample(records []Record, m Metric, g Granularity) []TrendPoint {
	type acc struct {
		sum   float64
		denom int
	}
	buckets := make(map[time.Time]*acc)

	for i := range records {
		r := &records[i]
		ts := m.BucketTime(r)
		if ts == nil {
			continue
		}
		start := BucketStart(*ts, g)
		a := buckets[start]
		if a == nil {
			a = &acc{}
			buckets[start] = a
		}

		switch m.Mode {
		case ModeRate:
			if r.OrderID != "" {
				a.denom++
			}
			if compliant, ok := m.BoolValue(r); ok && compliant {
				a.sum++
			}
		default:
			if v, ok := m.FloatValue(r); ok {
				a.sum += v
				a.denom++
			}
		}
	}

	starts := make([]time.Time, 0, len(buckets))
	for start, a := range buckets {
		if a.denom > 0 {
			starts = append(starts, start)
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	points := make([]TrendPoint, 0, len(starts))
	for _, start := range starts {
		a := buckets[start]
		points = append(points, TrendPoint{
			BucketStart: start,
			Value:       a.sum / float64(a.denom),
		})
	}

	smooth(points, g)
	annotate(points, m, g)
	return points
}

// BucketStart truncates a timestamp to the start of its calendar bucket:
// midnight for day, the preceding (or same) Monday for week, the first
// of the month for month. Week and month anchoring is mandatory so that
// week-over-week and month-over-month comparisons stay aligned.
func BucketStart(t time.Time, g Granularity) time.Time {
	t = t.UTC()
	switch g {
	case GranularityWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
		return day.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// smooth fills the Trend field: a trailing rolling mean over up to
// rollingWindow buckets for daily series (a partial window at the head,
// never a null), and the raw value unchanged for week/month where the
// bucket is already a meaningful aggregate.
func smooth(points []TrendPoint, g Granularity) {
	if g != GranularityDay {
		for i := range points {
			points[i].Trend = points[i].Value
		}
		return
	}
	var sum float64
	for i := range points {
		sum += points[i].Value
		if i >= rollingWindow {
			sum -= points[i-rollingWindow].Value
		}
		n := i + 1
		if n > rollingWindow {
			n = rollingWindow
		}
		points[i].Trend = sum / float64(n)
	}
}

// annotate fills per-point labels: none for daily (too dense to render),
// an ordinal week index for weekly, the year-month for monthly.
func annotate(points []TrendPoint, m Metric, g Granularity) {
	switch g {
	case GranularityWeek:
		for i := range points {
			points[i].Label = fmt.Sprintf("W%d %s", i+1, m.FormatValue(points[i].Value))
		}
	case GranularityMonth:
		for i := range points {
			points[i].Label = fmt.Sprintf("%s %s",
				points[i].BucketStart.Format("2006-01"), m.FormatValue(points[i].Value))
		}
	}
}
