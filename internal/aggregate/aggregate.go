package aggregate

import (
	"sort"
	"time"

	"meetupradar/internal/models"
)

// TermGroup holds the chronologically ordered events discovered by one
// search term, in publish order.
type TermGroup struct {
	Term   string
	Events []models.Event
}

// Result is one cycle's aggregated view: every future event in
// chronological order, the informational week buckets, and the per-term
// groups that drive publish order. The buckets never filter publishing;
// all future events are posted.
type Result struct {
	Events   []models.Event
	ThisWeek []models.Event
	NextWeek []models.Event
	Groups   []TermGroup
}

// Aggregate merges events from every query of a cycle: deduplicates by
// (title, start), drops anything not strictly in the future, orders
// ascending by start with insertion-order ties, buckets into this-week
// (0-7 days out) and next-week (8-14 days out), and groups by search term.
func Aggregate(events []models.Event, now time.Time) Result {
	deduped := dedupe(events)

	future := deduped[:0]
	for _, ev := range deduped {
		if ev.Start.After(now) {
			future = append(future, ev)
		}
	}

	sort.SliceStable(future, func(i, j int) bool {
		return future[i].Start.Before(future[j].Start)
	})

	res := Result{Events: future}
	for _, ev := range future {
		switch days := daysAhead(now, ev.Start); {
		case days <= 7:
			res.ThisWeek = append(res.ThisWeek, ev)
		case days <= 14:
			res.NextWeek = append(res.NextWeek, ev)
		}
	}

	res.Groups = groupByTerm(future)
	return res
}

// dedupe keeps one representative per (title, start) pair. Later sightings
// of the same pair replace the earlier one in place, so the same gathering
// discovered by several search terms collapses to a single record while
// first-seen insertion order is preserved.
func dedupe(events []models.Event) []models.Event {
	index := make(map[models.EventKey]int, len(events))
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if i, seen := index[ev.Key()]; seen {
			out[i] = ev
			continue
		}
		index[ev.Key()] = len(out)
		out = append(out, ev)
	}
	return out
}

func daysAhead(now, start time.Time) int {
	return int(start.Sub(now).Hours() / 24)
}

// groupByTerm partitions the ordered events by search term, preserving the
// order in which terms first appear and the chronological order within
// each group.
func groupByTerm(events []models.Event) []TermGroup {
	index := make(map[string]int, len(events))
	var groups []TermGroup
	for _, ev := range events {
		i, ok := index[ev.SearchTerm]
		if !ok {
			i = len(groups)
			index[ev.SearchTerm] = i
			groups = append(groups, TermGroup{Term: ev.SearchTerm})
		}
		groups[i].Events = append(groups[i].Events, ev)
	}
	return groups
}
