// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"time"
)

// =============================================================================
// DATE GROUPS
// =============================================================================

// DateGroup is a sidebar bucket for chats by recency.
type DateGroup string

const (
	GroupToday      DateGroup = "Today"
	GroupYesterday  DateGroup = "Yesterday"
	GroupLast7Days  DateGroup = "Last 7 Days"
	GroupLast30Days DateGroup = "Last 30 Days"
	GroupOlder      DateGroup = "Older"
)

// DateGroupOrder is the display order of the buckets, most recent first.
var DateGroupOrder = []DateGroup{
	GroupToday,
	GroupYesterday,
	GroupLast7Days,
	GroupLast30Days,
	GroupOlder,
}

// GroupByDate partitions chats into date buckets keyed off midnight-aligned
// day boundaries computed from now, in the local time zone. A chat lands in
// the first bucket whose boundary its UpdatedAt is at or after, checked in
// DateGroupOrder. Within each bucket chats stay ordered by UpdatedAt
// descending.
//
// The function is pure: it never mutates its input and is deterministic for
// a fixed input and a fixed now.
func GroupByDate(chats []*Chat, now time.Time) map[DateGroup][]*Chat {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)
	last7 := today.AddDate(0, 0, -7)
	last30 := today.AddDate(0, 0, -30)

	groups := map[DateGroup][]*Chat{
		GroupToday:      {},
		GroupYesterday:  {},
		GroupLast7Days:  {},
		GroupLast30Days: {},
		GroupOlder:      {},
	}

	sorted := make([]*Chat, len(chats))
	copy(sorted, chats)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	for _, chat := range sorted {
		t := chat.UpdatedAt
		switch {
		case !t.Before(today):
			groups[GroupToday] = append(groups[GroupToday], chat)
		case !t.Before(yesterday):
			groups[GroupYesterday] = append(groups[GroupYesterday], chat)
		case !t.Before(last7):
			groups[GroupLast7Days] = append(groups[GroupLast7Days], chat)
		case !t.Before(last30):
			groups[GroupLast30Days] = append(groups[GroupLast30Days], chat)
		default:
			groups[GroupOlder] = append(groups[GroupOlder], chat)
		}
	}

	return groups
}
