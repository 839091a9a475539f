package client

import "sort"

// Merge reconciles two message sets into one canonical timeline. It is the
// only code path that combines messages, regardless of whether they came from
// cache, a history fetch, or a push event.
//
// Rules:
//   - A server-assigned ID is the deduplication key; later copies of the same
//     ID replace earlier ones, so an update event wins over a stale fetch.
//   - An incoming confirmed message absorbs the local optimistic placeholder
//     carrying the same ClientTag.
//   - The result is sorted by (CreatedAt, ID) ascending.
//
// Merge never mutates its inputs and is idempotent: merging the same set
// twice yields the same timeline.
func Merge(existing, incoming []Message) []Message {
	byID := make(map[string]Message, len(existing)+len(incoming))
	// Pending placeholders have no server ID yet; track them by ClientTag.
	pending := make(map[string]Message)
	confirmedTags := make(map[string]bool)
	var order []string

	add := func(m Message) {
		if m.ID == "" {
			if m.ClientTag != "" && !confirmedTags[m.ClientTag] {
				pending[m.ClientTag] = m
			}
			return
		}
		if _, seen := byID[m.ID]; !seen {
			order = append(order, m.ID)
		}
		byID[m.ID] = m
		if m.ClientTag != "" {
			// A confirmed copy supersedes the placeholder it originated from.
			confirmedTags[m.ClientTag] = true
			delete(pending, m.ClientTag)
		}
	}

	for _, m := range existing {
		add(m)
	}
	for _, m := range incoming {
		add(m)
	}

	merged := make([]Message, 0, len(order)+len(pending))
	for _, id := range order {
		merged = append(merged, byID[id])
	}
	for _, m := range pending {
		merged = append(merged, m)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Before(&merged[j])
	})
	return merged
}
