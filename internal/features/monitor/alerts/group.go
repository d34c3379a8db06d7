package alerts

import (
	"sort"

	"apimon/internal/features/monitor/models"
)

type groupKey struct {
	endpointID string
	kind       models.AlertKind
	severity   models.Severity
	message    string
}

// Group collapses alerts with the same endpoint, kind, severity and message
// into one entry carrying a count. Each entry shows its newest alert and is
// acknowledged only if every member is. Entries are ordered newest first.
func Group(alerts []models.Alert) []models.GroupedAlert {
	index := make(map[groupKey]int)
	var groups []models.GroupedAlert

	for _, a := range alerts {
		key := groupKey{a.EndpointID, a.Kind, a.Severity, a.Message}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, models.GroupedAlert{Alert: a, Count: 1})
			continue
		}
		g := &groups[i]
		g.Count++
		acked := g.Acknowledged && a.Acknowledged
		if a.Timestamp.After(g.Timestamp) {
			g.Alert = a
		}
		g.Acknowledged = acked
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Timestamp.After(groups[j].Timestamp)
	})
	return groups
}
