package sla

import (
	"fmt"
	"sort"
)

// Summarize computes one summary row per distinct non-empty group value
// present in the input. For rate metrics the denominator is every record
// with a resolvable duration, compliant or not; groups with zero
// qualifying records are omitted rather than emitted as NaN. Rows come
// back in first-seen input order; presentation sorting is the caller's
// job (see RankWorstFirst).
func Summarize(records []Record, groupBy GroupBy, m Metric) []GroupSummary {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	var order []string

	for i := range records {
		r := &records[i]
		key := r.GroupValue(groupBy)
		if key == "" {
			continue
		}

		var obs float64
		switch m.Mode {
		case ModeRate:
			compliant, ok := m.BoolValue(r)
			if !ok {
				continue
			}
			if compliant {
				obs = 1
			}
		default:
			v, ok := m.FloatValue(r)
			if !ok {
				continue
			}
			obs = v
		}

		a := groups[key]
		if a == nil {
			a = &acc{}
			groups[key] = a
			order = append(order, key)
		}
		a.sum += obs
		a.count++
	}

	out := make([]GroupSummary, 0, len(order))
	for _, key := range order {
		a := groups[key]
		value := a.sum / float64(a.count)
		out = append(out, GroupSummary{
			GroupValue: key,
			Value:      value,
			Count:      a.count,
			Label:      fmt.Sprintf("%s | %d orders", m.FormatValue(value), a.count),
		})
	}
	return out
}

// RankWorstFirst returns a copy of the summaries ordered worst-first for
// the given direction: ascending value when higher is better, descending
// when lower is better. Ties break on group value so the order is stable
// across runs.
func RankWorstFirst(summaries []GroupSummary, d Direction) []GroupSummary {
	out := make([]GroupSummary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			if d == LowerIsBetter {
				return out[i].Value > out[j].Value
			}
			return out[i].Value < out[j].Value
		}
		return out[i].GroupValue < out[j].GroupValue
	})
	return out
}
