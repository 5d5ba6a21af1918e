// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/provider"
)

// Update is the Bubble Tea update loop.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.refreshViewport(true)
		m.ready = true
		return m, nil

	case syncMsg:
		return m, m.onSync()

	case frameMsg:
		m.throttled = false
		m.lastFrame = time.Now()
		m.refreshViewport(true)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// onSync refreshes the view after a controller notification. During a
// stream, refreshes inside the frame interval are parked behind a single
// tick so fragment bursts render at a bounded rate.
func (m *Model) onSync() tea.Cmd {
	resubscribe := m.waitForSync()

	if m.ctrl.State() == controller.StateStreaming {
		since := time.Since(m.lastFrame)
		if since < frameInterval {
			if m.throttled {
				return resubscribe
			}
			m.throttled = true
			return tea.Batch(resubscribe, tea.Tick(frameInterval-since, func(time.Time) tea.Msg {
				return frameMsg{}
			}))
		}
	}

	m.lastFrame = time.Now()
	m.refreshViewport(true)
	return resubscribe
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entryKind != entryNone {
		return m.handleEntryKey(msg)
	}
	if m.showSettings {
		return m.handleSettingsKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Newline):
		m.input.InsertString("\n")
		m.resizeInput()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl.Busy() {
			m.ctrl.Cancel()
		} else {
			m.ctrl.ClearError()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		_, _ = m.ctrl.NewChat()
		return m, nil

	case key.Matches(msg, m.keys.DeleteChat):
		if id := m.chats.ActiveID(); id != "" {
			_ = m.ctrl.DeleteChat(id)
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		_, _ = m.chats.ToggleSidebar()
		m.layout()
		m.refreshViewport(false)
		return m, nil

	case key.Matches(msg, m.keys.NextChat):
		m.moveChat(1)
		return m, nil

	case key.Matches(msg, m.keys.PrevChat):
		m.moveChat(-1)
		return m, nil

	case key.Matches(msg, m.keys.Settings):
		m.openSettings()
		return m, nil

	case key.Matches(msg, m.keys.Search):
		if m.searcher != nil {
			m.openEntry(entrySearch, "")
		}
		return m, nil

	case key.Matches(msg, m.keys.Rename):
		if chat := m.chats.ActiveChat(); chat != nil {
			m.openEntry(entryRename, chat.Title)
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.resizeInput()
	return m, cmd
}

// submit hands the input to the controller. The draft is cleared only when
// the submission was accepted, so a rejected turn never loses typed text.
func (m *Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	if err := m.ctrl.Submit(text); err == nil {
		m.input.Reset()
		m.resizeInput()
		m.refreshViewport(true)
	}
	return m, nil
}

// moveChat shifts the active chat through the sidebar display order.
func (m *Model) moveChat(delta int) {
	order := m.sidebar.Order(m.chats.Chats(), time.Now())
	if len(order) == 0 {
		return
	}

	active := m.chats.ActiveID()
	idx := 0
	for i, id := range order {
		if id == active {
			idx = i + delta
			break
		}
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(order) {
		idx = len(order) - 1
	}
	if order[idx] != active {
		_ = m.ctrl.SetActiveChat(order[idx])
	}
}

// =============================================================================
// SETTINGS OVERLAY
// =============================================================================

func (m *Model) openSettings() {
	m.showSettings = true
	m.settingsIdx = 0
	ids := provider.IDs()
	for i, id := range ids {
		if id == m.settings.Provider() {
			m.settingsIdx = i
			break
		}
	}
	m.input.Blur()
}

func (m *Model) closeSettings() {
	m.showSettings = false
	m.input.Focus()
}

func (m *Model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ids := provider.IDs()

	switch msg.String() {
	case "esc", "ctrl+p", "q":
		m.closeSettings()
		return m, nil

	case "up", "k":
		if m.settingsIdx > 0 {
			m.settingsIdx--
		}
		return m, nil

	case "down", "j":
		if m.settingsIdx < len(ids)-1 {
			m.settingsIdx++
		}
		return m, nil

	case "enter":
		_ = m.settings.SetProvider(ids[m.settingsIdx])
		m.closeSettings()
		return m, nil

	case "left", "-":
		m.nudgeTemperature(-0.1)
		return m, nil

	case "right", "+", "=":
		m.nudgeTemperature(0.1)
		return m, nil

	case "m":
		m.showSettings = false
		m.openEntry(entryModel, m.settings.Model())
		return m, nil

	case "s":
		m.showSettings = false
		m.openEntry(entrySystem, m.settings.SystemPrompt())
		return m, nil

	case "ctrl+c":
		return m, tea.Quit
	}

	return m, nil
}

// =============================================================================
// INLINE TEXT ENTRY
// =============================================================================

// openEntry starts the inline entry line with an initial value.
func (m *Model) openEntry(kind entryKind, initial string) {
	m.entryKind = kind
	m.entry = initial
	m.searchResults = nil
	m.searchIdx = 0
	m.searchErr = nil
	m.input.Blur()
}

// closeEntry ends the entry line and returns focus to the input.
func (m *Model) closeEntry() {
	m.entryKind = entryNone
	m.entry = ""
	m.searchResults = nil
	m.searchErr = nil
	m.input.Focus()
}

func (m *Model) handleEntryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.closeEntry()
		return m, nil

	case tea.KeyEnter:
		m.commitEntry()
		return m, nil

	case tea.KeyBackspace:
		if m.entry != "" {
			runes := []rune(m.entry)
			m.entry = string(runes[:len(runes)-1])
			if m.entryKind == entrySearch {
				m.runSearch()
			}
		}
		return m, nil

	case tea.KeyUp:
		if m.entryKind == entrySearch && m.searchIdx > 0 {
			m.searchIdx--
		}
		return m, nil

	case tea.KeyDown:
		if m.entryKind == entrySearch && m.searchIdx < len(m.searchResults)-1 {
			m.searchIdx++
		}
		return m, nil

	case tea.KeySpace:
		m.entry += " "
		if m.entryKind == entrySearch {
			m.runSearch()
		}
		return m, nil

	case tea.KeyRunes:
		m.entry += string(msg.Runes)
		if m.entryKind == entrySearch {
			m.runSearch()
		}
		return m, nil
	}
	return m, nil
}

// commitEntry applies the entry value for its kind.
func (m *Model) commitEntry() {
	value := strings.TrimSpace(m.entry)

	switch m.entryKind {
	case entrySearch:
		if len(m.searchResults) > 0 {
			_ = m.ctrl.SetActiveChat(m.searchResults[m.searchIdx].ChatID)
			m.closeEntry()
			m.refreshViewport(true)
		}
		return

	case entryRename:
		if value != "" {
			if id := m.chats.ActiveID(); id != "" {
				_ = m.chats.RenameChat(id, value)
			}
		}

	case entryModel:
		if value != "" {
			_ = m.settings.SetModel(value)
		}

	case entrySystem:
		// An empty value clears the system prompt.
		_ = m.settings.SetSystemPrompt(value)
	}

	m.closeEntry()
}

// runSearch refreshes the result list for the current query. The index is
// synced from the store first, so results always reflect live data.
func (m *Model) runSearch() {
	m.searchResults = nil
	m.searchIdx = 0
	m.searchErr = nil

	query := strings.TrimSpace(m.entry)
	if query == "" || m.searcher == nil {
		return
	}

	if err := m.searcher.Sync(m.chats.Chats()); err != nil {
		m.searchErr = err
		return
	}
	results, err := m.searcher.Search(query, 10)
	if err != nil {
		m.searchErr = err
		return
	}
	m.searchResults = results
}

// nudgeTemperature steps the temperature, clamped to the valid range.
func (m *Model) nudgeTemperature(delta float64) {
	t := m.settings.Temperature() + delta
	if t < 0 {
		t = 0
	}
	if t > 2 {
		t = 2
	}
	// Round to one decimal so repeated nudges don't accumulate float dust.
	t = float64(int(t*10+0.5)) / 10
	_ = m.settings.SetTemperature(t)
}

// =============================================================================
// LAYOUT AND REFRESH
// =============================================================================

// layout recomputes component sizes from the terminal dimensions.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	mainWidth := m.width
	if m.chats.SidebarOpen() {
		mainWidth -= m.sidebar.Width()
		if mainWidth < 20 {
			mainWidth = 20
		}
	}

	contentHeight := m.height - inputHeight - 1
	if contentHeight < 3 {
		contentHeight = 3
	}

	if m.viewport.Width == 0 {
		m.viewport = newViewport(mainWidth-2, contentHeight)
	} else {
		m.viewport.Width = mainWidth - 2
		m.viewport.Height = contentHeight
	}

	m.sidebar.SetSize(m.sidebar.Width(), contentHeight+inputHeight)
	m.statBar.SetWidth(m.width)
	m.messages.SetWidth(mainWidth - 2)
	m.input.SetWidth(mainWidth - 4)
}

// resizeInput grows the input box with its content, up to five rows.
func (m *Model) resizeInput() {
	lines := m.input.LineCount()
	if lines < 1 {
		lines = 1
	}
	if lines > 5 {
		lines = 5
	}
	m.input.SetHeight(lines)
}

// refreshViewport re-renders the active conversation into the viewport.
// When follow is true and the view was already at the bottom, it stays
// pinned there so streaming output scrolls into view.
func (m *Model) refreshViewport(follow bool) {
	atBottom := m.viewport.AtBottom()

	var content string
	if chat := m.chats.ActiveChat(); chat != nil {
		content = m.messages.RenderAll(chat.Messages)
	} else {
		content = m.messages.RenderAll(nil)
	}
	m.viewport.SetContent(content)

	if follow && atBottom {
		m.viewport.GotoBottom()
	}
}
