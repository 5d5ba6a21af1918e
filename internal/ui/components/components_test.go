// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
)

func testTheme() *styles.Theme {
	return styles.NewTheme()
}

// =============================================================================
// SIDEBAR
// =============================================================================

func chatUpdatedAt(title string, updated time.Time) *model.Chat {
	c := model.NewChat()
	c.Title = title
	c.UpdatedAt = updated
	return c
}

func TestSidebar_OrderFollowsGroups(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	today := chatUpdatedAt("today", now.Add(-time.Hour))
	older := chatUpdatedAt("older", now.AddDate(0, 0, -90))
	yesterday := chatUpdatedAt("yesterday", now.AddDate(0, 0, -1))

	s := NewSidebar(testTheme(), 30)
	order := s.Order([]*model.Chat{older, today, yesterday}, now)

	want := []string{today.ID, yesterday.ID, older.ID}
	if len(order) != len(want) {
		t.Fatalf("order length = %d, want %d", len(order), len(want))
	}
	for i, id := range want {
		if order[i] != id {
			t.Errorf("order[%d] = %q, want %q", i, order[i], id)
		}
	}
}

func TestSidebar_RenderSkipsEmptyGroups(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	today := chatUpdatedAt("fresh chat", now.Add(-time.Hour))

	s := NewSidebar(testTheme(), 30)
	out := s.Render([]*model.Chat{today}, today.ID, now)

	if !strings.Contains(out, "Today") {
		t.Error("expected Today group header")
	}
	if strings.Contains(out, "Yesterday") || strings.Contains(out, "Older") {
		t.Error("empty groups must be skipped")
	}
	if !strings.Contains(out, "fresh chat") {
		t.Error("expected chat title in output")
	}
}

func TestSidebar_RenderEmptyState(t *testing.T) {
	s := NewSidebar(testTheme(), 30)
	out := s.Render(nil, "", time.Now())
	if !strings.Contains(out, "No chats yet") {
		t.Error("expected empty-state hint")
	}
}

func TestSidebar_TruncatesLongTitles(t *testing.T) {
	now := time.Now()
	long := chatUpdatedAt(strings.Repeat("x", 100), now)

	s := NewSidebar(testTheme(), 20)
	out := s.Render([]*model.Chat{long}, "", now)
	if strings.Contains(out, strings.Repeat("x", 50)) {
		t.Error("long title should be truncated to the column width")
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

func newMessageView() *MessageView {
	theme := testTheme()
	return NewMessageView(theme, NewMarkdown(60, false))
}

func TestMessageView_UserVerbatim(t *testing.T) {
	v := newMessageView()
	out := v.Render(model.NewUserMessage("plain *text* stays"))

	if !strings.Contains(out, "You") {
		t.Error("expected role label")
	}
	if !strings.Contains(out, "plain *text* stays") {
		t.Error("user content must render verbatim")
	}
}

func TestMessageView_StreamingShowsCursor(t *testing.T) {
	v := newMessageView()
	msg := model.NewStreamingMessage()
	msg.AppendFragment("partial answ")

	out := v.Render(msg)
	if !strings.Contains(out, "partial answ") {
		t.Error("expected partial content")
	}
	if !strings.Contains(out, streamCursor) {
		t.Error("expected stream cursor on open message")
	}

	msg.Finalize()
	out = v.Render(msg)
	if strings.Contains(out, streamCursor) {
		t.Error("cursor must disappear after finalize")
	}
}

func TestMessageView_EmptyStreamShowsCursorOnly(t *testing.T) {
	v := newMessageView()
	out := v.Render(model.NewStreamingMessage())
	if !strings.Contains(out, streamCursor) {
		t.Error("expected cursor while waiting for the first fragment")
	}
}

func TestMessageView_RenderAllEmptyHint(t *testing.T) {
	v := newMessageView()
	out := v.RenderAll(nil)
	if !strings.Contains(out, "start the conversation") {
		t.Error("expected empty conversation hint")
	}
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

func TestRenderFencedBlocks_ClosedFence(t *testing.T) {
	text := "before\n```go\nfmt.Println(1)\n```\nafter"
	out := RenderFencedBlocks(text, 80)

	if !strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Error("prose around the fence must survive")
	}
	if strings.Contains(out, "```") {
		t.Error("fence markers must be consumed")
	}
}

func TestRenderFencedBlocks_UnclosedFence(t *testing.T) {
	// Mid-stream content often ends inside an open fence.
	text := "```python\nprint('hi')"
	out := RenderFencedBlocks(text, 80)
	if !strings.Contains(out, "print") {
		t.Error("unclosed fence content must still render")
	}
}

func TestHighlight_UnknownLanguageFallsBack(t *testing.T) {
	code := "some opaque text"
	out := Highlight(code, "no-such-language")
	if out == "" {
		t.Error("highlighting must never drop content")
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdown_DisabledUsesFallback(t *testing.T) {
	m := NewMarkdown(60, false)
	out := m.Render("hello **world**")
	if !strings.Contains(out, "**world**") {
		t.Error("disabled renderer must pass prose through")
	}
}

func TestMarkdown_WidthFloor(t *testing.T) {
	m := NewMarkdown(5, true)
	// Must not panic or produce empty output at tiny widths.
	if m.Render("content") == "" {
		t.Error("expected non-empty render")
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

func TestStatusBar_ShowsSettings(t *testing.T) {
	bar := NewStatusBar(testTheme(), 100)
	out := bar.Render(StatusInfo{
		Provider:    "openai",
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		Configured:  true,
	}, []Shortcut{{Key: "enter", Desc: "send"}})

	for _, want := range []string{"openai", "gpt-4o-mini", "0.7", "ready", "enter", "send"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in status bar", want)
		}
	}
}

func TestStatusBar_WarnsWhenUnconfigured(t *testing.T) {
	bar := NewStatusBar(testTheme(), 100)
	out := bar.Render(StatusInfo{Provider: "openai", Model: "gpt-4o-mini"}, nil)
	if !strings.Contains(out, "no API key") {
		t.Error("expected missing-key warning")
	}
}

func TestStatusBar_NarrowDropsHints(t *testing.T) {
	bar := NewStatusBar(testTheme(), 30)
	out := bar.Render(StatusInfo{
		Provider: "openai",
		Model:    "gpt-4o-mini",
	}, []Shortcut{{Key: "ctrl+b", Desc: "toggle sidebar"}})

	if strings.Contains(out, "toggle sidebar") {
		t.Error("hints must be dropped before the settings on narrow terminals")
	}
}

func TestStatusBar_StreamingState(t *testing.T) {
	bar := NewStatusBar(testTheme(), 100)
	out := bar.Render(StatusInfo{
		Provider:  "local",
		Model:     "llama3",
		Streaming: true,
		Spinner:   "⠋",
	}, nil)
	if !strings.Contains(out, "streaming") {
		t.Error("expected streaming state")
	}
}
