// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
	"github.com/nexus-chat/nexus-tui/internal/util"
)

// =============================================================================
// SIDEBAR
// =============================================================================

// Sidebar renders the chat list grouped by recency. Groups appear most
// recent first and empty groups are skipped. The active chat row is
// highlighted.
type Sidebar struct {
	theme  *styles.Theme
	width  int
	height int
}

// NewSidebar creates a sidebar renderer.
func NewSidebar(theme *styles.Theme, width int) *Sidebar {
	return &Sidebar{theme: theme, width: width}
}

// SetSize updates the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Width returns the configured column width.
func (s *Sidebar) Width() int {
	return s.width
}

// Order returns chat IDs in sidebar display order: groups most recent
// first, chats within a group by UpdatedAt descending. Keyboard navigation
// walks this order.
func (s *Sidebar) Order(chats []*model.Chat, now time.Time) []string {
	groups := model.GroupByDate(chats, now)
	var ids []string
	for _, group := range model.DateGroupOrder {
		for _, chat := range groups[group] {
			ids = append(ids, chat.ID)
		}
	}
	return ids
}

// Render renders the sidebar column.
func (s *Sidebar) Render(chats []*model.Chat, activeID string, now time.Time) string {
	inner := s.width - 4
	if inner < 8 {
		inner = 8
	}

	var b strings.Builder
	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n")

	if len(chats) == 0 {
		b.WriteString("\n")
		b.WriteString(s.theme.EmptyHint.Render("No chats yet"))
	} else {
		groups := model.GroupByDate(chats, now)
		for _, group := range model.DateGroupOrder {
			bucket := groups[group]
			if len(bucket) == 0 {
				continue
			}
			b.WriteString("\n")
			b.WriteString(s.theme.GroupHeader.Render(string(group)))
			b.WriteString("\n")
			for _, chat := range bucket {
				b.WriteString(s.renderItem(chat, chat.ID == activeID, inner))
				b.WriteString("\n")
			}
		}
	}

	column := s.theme.Sidebar.Width(s.width)
	if s.height > 0 {
		column = column.Height(s.height)
	}
	return column.Render(strings.TrimRight(b.String(), "\n"))
}

// renderItem renders one chat row, truncated to the column width.
func (s *Sidebar) renderItem(chat *model.Chat, active bool, width int) string {
	title := util.TruncateWidth(util.CollapseLines(chat.Title), width)
	if active {
		return s.theme.ChatItemActive.Render(util.PadWidth(title, width))
	}
	return s.theme.ChatItem.Render(title)
}
