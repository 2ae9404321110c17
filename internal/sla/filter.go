package sla

import "time"

// Filter is the selection applied to a dataset before it reaches the
// summarizer or resampler. Empty slices mean "no restriction".
type Filter struct {
	From      *time.Time // inclusive lower bound, compared on audit date
	To        *time.Time // inclusive upper bound, compared on audit date
	Countries []string
	Carriers  []string
	Targets   []string // group values on the active grouping dimension
}

// Apply returns the records passing the filter. The input slice is never
// mutated; records with no audit timestamp are excluded whenever a date
// bound is set, since they cannot be placed inside the range.
func Apply(records []Record, f Filter, groupBy GroupBy) []Record {
	countries := toSet(f.Countries)
	carriers := toSet(f.Carriers)
	targets := toSet(f.Targets)

	out := make([]Record, 0, len(records))
	for i := range records {
		r := &records[i]
		if !inDateRange(r.AuditTime, f.From, f.To) {
			continue
		}
		if countries != nil && !countries[r.Country] {
			continue
		}
		if carriers != nil && !carriers[r.Carrier] {
			continue
		}
		if targets != nil && !targets[r.GroupValue(groupBy)] {
			continue
		}
		out = append(out, *r)
	}
	return out
}

func inDateRange(t, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	d := dateOf(*t)
	if from != nil && d.Before(dateOf(*from)) {
		return false
	}
	if to != nil && d.After(dateOf(*to)) {
		return false
	}
	return true
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
