// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_FragmentConcatenation(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{"word boundaries", []string{"Hel", "lo, ", "world"}, "Hello, world"},
		{"single fragment", []string{"complete"}, "complete"},
		{"empty fragments preserved order", []string{"a", "", "b", "c"}, "abc"},
		{"multibyte split across fragments", []string{"héll", "o wö", "rld"}, "héllo wörld"},
		{"no fragments", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewStreamingMessage()
			for _, f := range tt.fragments {
				msg.AppendFragment(f)
			}
			if got := msg.DisplayContent(); got != tt.want {
				t.Errorf("DisplayContent during stream = %q, want %q", got, tt.want)
			}
			msg.Finalize()
			if msg.Content != tt.want {
				t.Errorf("Content after Finalize = %q, want %q", msg.Content, tt.want)
			}
		})
	}
}

func TestMessage_ImmutableAfterFinalize(t *testing.T) {
	msg := NewStreamingMessage()
	msg.AppendFragment("The answer")
	msg.AppendFragment(" is 42")
	msg.Finalize()

	// Late fragments (e.g. from an abandoned stream) must not mutate content.
	msg.AppendFragment(" or maybe 43")
	if msg.Content != "The answer is 42" {
		t.Errorf("Content = %q, want %q", msg.Content, "The answer is 42")
	}
	if msg.IsStreaming {
		t.Error("message should not be streaming after Finalize")
	}
}

func TestMessage_FinalizeIdempotent(t *testing.T) {
	msg := NewStreamingMessage()
	msg.AppendFragment("partial")
	msg.Finalize()
	msg.Finalize()
	if msg.Content != "partial" {
		t.Errorf("Content = %q, want %q", msg.Content, "partial")
	}
}

func TestMessage_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		msg := NewUserMessage("hi")
		if seen[msg.ID] {
			t.Fatalf("duplicate message ID %q", msg.ID)
		}
		seen[msg.ID] = true
	}
}

func TestMessage_CloneFlattensStream(t *testing.T) {
	msg := NewStreamingMessage()
	msg.AppendFragment("partial ")
	msg.AppendFragment("output")

	clone := msg.Clone()
	if clone.Content != "partial output" {
		t.Errorf("clone Content = %q, want %q", clone.Content, "partial output")
	}
	if clone.IsStreaming {
		t.Error("clone should not be streaming")
	}

	// Mutating the original must not affect the clone.
	msg.AppendFragment(" more")
	if clone.Content != "partial output" {
		t.Error("clone content changed after original mutation")
	}
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestNewChat(t *testing.T) {
	chat := NewChat()
	if chat.ID == "" {
		t.Error("expected non-empty ID")
	}
	if chat.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", chat.Title, DefaultTitle)
	}
	if !chat.IsEmpty() {
		t.Error("new chat should be empty")
	}
	if !chat.HasDefaultTitle() {
		t.Error("new chat should carry the default title")
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short verbatim", "Fix my build", "Fix my build"},
		{"exactly at budget", strings.Repeat("a", TitleBudget), strings.Repeat("a", TitleBudget)},
		{
			"over budget gets marker",
			strings.Repeat("a", 60),
			strings.Repeat("a", TitleBudget) + TitleMarker,
		},
		{"newlines collapsed", "first line\nsecond line", "first line second line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.content); got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestDeriveTitle_BudgetLength(t *testing.T) {
	long := strings.Repeat("x", 60)
	got := DeriveTitle(long)
	if len([]rune(got)) != TitleBudget+len([]rune(TitleMarker)) {
		t.Errorf("derived title length = %d, want %d", len([]rune(got)), TitleBudget+len([]rune(TitleMarker)))
	}
}

// =============================================================================
// DATE GROUPING TESTS
// =============================================================================

func chatUpdatedAt(t time.Time) *Chat {
	c := NewChat()
	c.UpdatedAt = t
	return c
}

func TestGroupByDate_Buckets(t *testing.T) {
	// Fixed "now" mid-afternoon so day arithmetic is unambiguous.
	now := time.Date(2025, 6, 15, 15, 30, 0, 0, time.UTC)

	chats := []*Chat{
		chatUpdatedAt(now),                      // Today
		chatUpdatedAt(now.AddDate(0, 0, -1)),    // Yesterday
		chatUpdatedAt(now.AddDate(0, 0, -10)),   // Last 30 Days
		chatUpdatedAt(now.AddDate(0, 0, -40)),   // Older
	}

	groups := GroupByDate(chats, now)

	wantCounts := map[DateGroup]int{
		GroupToday:      1,
		GroupYesterday:  1,
		GroupLast7Days:  0,
		GroupLast30Days: 1,
		GroupOlder:      1,
	}
	for group, want := range wantCounts {
		if got := len(groups[group]); got != want {
			t.Errorf("bucket %q: got %d chats, want %d", group, got, want)
		}
	}
}

func TestGroupByDate_MidnightBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 30, 0, 0, time.UTC)
	midnight := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	groups := GroupByDate([]*Chat{
		chatUpdatedAt(midnight),                       // exactly at today's boundary
		chatUpdatedAt(midnight.Add(-time.Nanosecond)), // just before midnight
	}, now)

	if len(groups[GroupToday]) != 1 {
		t.Errorf("Today = %d chats, want 1", len(groups[GroupToday]))
	}
	if len(groups[GroupYesterday]) != 1 {
		t.Errorf("Yesterday = %d chats, want 1", len(groups[GroupYesterday]))
	}
}

func TestGroupByDate_OrderWithinBucket(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	older := chatUpdatedAt(now.Add(-3 * time.Hour))
	newer := chatUpdatedAt(now.Add(-1 * time.Hour))
	middle := chatUpdatedAt(now.Add(-2 * time.Hour))

	groups := GroupByDate([]*Chat{older, newer, middle}, now)

	today := groups[GroupToday]
	if len(today) != 3 {
		t.Fatalf("Today = %d chats, want 3", len(today))
	}
	if today[0] != newer || today[1] != middle || today[2] != older {
		t.Error("chats within bucket not ordered by UpdatedAt descending")
	}
}

func TestGroupByDate_Pure(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	chats := []*Chat{
		chatUpdatedAt(now.Add(-1 * time.Hour)),
		chatUpdatedAt(now.Add(-2 * time.Hour)),
	}
	orig := []*Chat{chats[0], chats[1]}

	first := GroupByDate(chats, now)
	second := GroupByDate(chats, now)

	if chats[0] != orig[0] || chats[1] != orig[1] {
		t.Error("GroupByDate mutated its input slice")
	}
	for _, g := range DateGroupOrder {
		if len(first[g]) != len(second[g]) {
			t.Errorf("bucket %q differs between identical calls", g)
		}
	}
}
