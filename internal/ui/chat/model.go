// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/stream"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/viewmodel"
)

// =============================================================================
// FOCUS
// =============================================================================

// Focus names the pane receiving keyboard input.
type Focus int

const (
	FocusList Focus = iota
	FocusSearch
	FocusInput
)

// =============================================================================
// CONFIG
// =============================================================================

// Config wires the screen to the messaging core.
type Config struct {
	Cache   *cache.Cache
	View    *viewmodel.ViewModel
	Replier *stream.Replier

	// ExportDir receives /export files (default: working directory).
	ExportDir string
	// MarkdownStyle is a glamour standard style name; empty picks dark or
	// light from the terminal background.
	MarkdownStyle string
	// Clipboard replaces the system clipboard writer.
	Clipboard func(string) error

	Theme  *styles.Theme
	Logger zerolog.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the messenger screen.
type Model struct {
	ctx     context.Context
	cache   *cache.Cache
	view    *viewmodel.ViewModel
	replier *stream.Replier
	events  <-chan cache.Event
	unsub   func()

	theme  *styles.Theme
	keys   KeyMap
	logger zerolog.Logger

	exportDir     string
	markdownStyle string
	clipboard     func(string) error

	// Dimensions
	width  int
	height int

	// UI state
	focus  Focus
	cursor int
	state  viewmodel.State
	loaded bool

	status    string
	statusErr bool

	// Widgets
	search   textinput.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	renderer      *glamour.TermRenderer
	rendererWidth int
}

// New creates the screen. ctx bounds every write the screen starts.
func New(ctx context.Context, cfg Config) *Model {
	theme := cfg.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	style := cfg.MarkdownStyle
	if style == "" {
		style = "light"
		if theme.IsDark {
			style = "dark"
		}
	}
	clip := cfg.Clipboard
	if clip == nil {
		clip = copyToClipboard
	}

	search := textinput.New()
	search.Placeholder = "Поиск чатов..."
	search.Prompt = "🔍 "
	search.CharLimit = 100

	input := textinput.New()
	input.Placeholder = "Напишите сообщение..."
	input.Prompt = "> "
	input.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Typing

	m := &Model{
		ctx:           ctx,
		cache:         cfg.Cache,
		view:          cfg.View,
		replier:       cfg.Replier,
		theme:         theme,
		keys:          DefaultKeyMap(),
		logger:        cfg.Logger.With().Str("component", "tui").Logger(),
		exportDir:     cfg.ExportDir,
		markdownStyle: style,
		clipboard:     clip,
		search:        search,
		input:         input,
		viewport:      viewport.New(0, 0),
		spinner:       sp,
		width:         100,
		height:        30,
	}
	m.events, m.unsub = cfg.Cache.Subscribe()
	m.resize()
	return m
}

// Init starts the initial load and the notification listeners.
func (m *Model) Init() tea.Cmd {
	c := m.cache
	ctx := m.ctx
	return tea.Batch(
		func() tea.Msg { return LoadedMsg{Err: c.Load(ctx)} },
		listenEvents(m.events),
		listenReplies(m.replier.Updates()),
		m.spinner.Tick,
	)
}

// Close removes the cache subscription.
func (m *Model) Close() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
}

// State returns the last derived screen state.
func (m *Model) State() viewmodel.State {
	return m.state
}

// FocusedPane returns the pane receiving keyboard input.
func (m *Model) FocusedPane() Focus {
	return m.focus
}

// Status returns the status line text.
func (m *Model) Status() string {
	return m.status
}

// refresh re-derives the screen from the view model.
func (m *Model) refresh() {
	m.state = m.view.State()
	if n := len(m.state.Conversations); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.renderMessages()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.search.Blur()
	m.input.Blur()
	switch f {
	case FocusSearch:
		m.search.Focus()
	case FocusInput:
		m.input.Focus()
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 2
	inputHeight  = 3
	statusHeight = 1
)

func (m *Model) mainWidth() int {
	w := m.width - styles.SidebarWidth - 1
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) resize() {
	m.viewport.Width = m.mainWidth()
	h := m.height - headerHeight - inputHeight - statusHeight
	if h < 3 {
		h = 3
	}
	m.viewport.Height = h
	m.input.Width = m.mainWidth() - 6
	m.search.Width = styles.SidebarWidth - 8
}

func (m *Model) markdown(width int) *glamour.TermRenderer {
	if m.renderer != nil && m.rendererWidth == width {
		return m.renderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.markdownStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.logger.Debug().Err(err).Msg("markdown renderer unavailable")
		return nil
	}
	m.renderer, m.rendererWidth = r, width
	return r
}
