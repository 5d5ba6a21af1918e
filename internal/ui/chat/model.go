// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nexus-chat/nexus-tui/internal/config"
	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/search"
	"github.com/nexus-chat/nexus-tui/internal/store"
	"github.com/nexus-chat/nexus-tui/internal/ui/components"
	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
)

// Searcher indexes chats and answers full-text queries. *search.Index
// implements it; the TUI tolerates a nil Searcher by hiding the search
// overlay.
type Searcher interface {
	Sync(chats []*model.Chat) error
	Search(query string, limit int) ([]search.Result, error)
}

// frameInterval caps re-rendering during a stream. Fragments arrive far
// faster than the terminal can usefully draw; 30fps keeps the output smooth
// without burning CPU.
const frameInterval = 33 * time.Millisecond

// inputHeight is the height of the input box in rows, borders included.
const inputHeight = 3

// =============================================================================
// MESSAGES
// =============================================================================

// syncMsg signals that controller or store state changed and the view must
// refresh.
type syncMsg struct{}

// frameMsg releases a render that was deferred by the frame cap.
type frameMsg struct{}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view. All conversation state
// lives in the stores and the controller; the model holds only presentation
// state.
type Model struct {
	cfg      *config.Config
	ctrl     *controller.Controller
	chats    *store.ChatStore
	settings *store.SettingsStore

	theme *styles.Theme
	keys  KeyMap

	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model

	sidebar  *components.Sidebar
	statBar  *components.StatusBar
	messages *components.MessageView

	sync <-chan struct{}

	width  int
	height int
	ready  bool

	// Frame cap state. throttled means a refresh is parked behind a tick.
	lastFrame time.Time
	throttled bool

	// Settings overlay.
	showSettings bool
	settingsIdx  int

	// Inline text entry shared by search, rename, and the settings
	// editors. entryKind selects what enter commits.
	entryKind entryKind
	entry     string

	// Search overlay state.
	searcher      Searcher
	searchResults []search.Result
	searchIdx     int
	searchErr     error
}

// entryKind identifies what the inline entry line is editing.
type entryKind int

const (
	entryNone entryKind = iota
	entrySearch
	entryRename
	entryModel
	entrySystem
)

// New creates the chat view wired to the given controller and stores.
func New(cfg *config.Config, ctrl *controller.Controller, chats *store.ChatStore, settings *store.SettingsStore) *Model {
	theme := styles.NewTheme()

	input := textarea.New()
	input.Placeholder = "Type a message..."
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(1)
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	markdown := components.NewMarkdown(80, cfg.UI.Markdown)

	return &Model{
		cfg:      cfg,
		ctrl:     ctrl,
		chats:    chats,
		settings: settings,
		theme:    theme,
		keys:     DefaultKeyMap(),
		input:    input,
		spin:     spin,
		sidebar:  components.NewSidebar(theme, cfg.UI.SidebarWidth),
		statBar:  components.NewStatusBar(theme, 80),
		messages: components.NewMessageView(theme, markdown),
		sync:     ctrl.Subscribe(),
	}
}

// SetSearcher wires the full-text search index. Without one, the search
// binding is inert.
func (m *Model) SetSearcher(s Searcher) {
	m.searcher = s
}

// Init starts the cursor blink, the spinner, and the sync listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spin.Tick,
		m.waitForSync(),
	)
}

// waitForSync blocks on the controller's change channel and converts each
// signal into a Bubble Tea message. The channel is coalesced, so a burst of
// changes costs at most one wakeup.
func (m *Model) waitForSync() tea.Cmd {
	return func() tea.Msg {
		<-m.sync
		return syncMsg{}
	}
}

func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}
