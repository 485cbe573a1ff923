// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/stream"
	"github.com/jeranaias/rigchat/internal/util"
)

// Update handles all Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderMessages()
		return m, nil

	case LoadedMsg:
		m.loaded = true
		if msg.Err != nil {
			m.setStatus("Не удалось загрузить чаты: "+msg.Err.Error(), true)
		}
		if m.view.Sync(m.ctx) {
			m.cursor = 0
		}
		m.refresh()
		return m, nil

	case CacheEventMsg:
		m.handleEvent(msg.Event)
		return m, listenEvents(m.events)

	case ReplyUpdateMsg:
		u := msg.Update
		if u.Err != nil && !errors.Is(u.Err, stream.ErrReplyCanceled) {
			m.setStatus("Ответ не получен: "+u.Err.Error(), true)
		}
		m.refresh()
		return m, listenReplies(m.replier.Updates())

	case StatusMsg:
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), true)
		} else {
			m.setStatus(msg.Text, false)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.Typing {
			m.renderMessages()
		}
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleEvent(ev cache.Event) {
	switch ev.Type {
	case cache.EventMutationRolledBack:
		if ev.Op == cache.OpAppendMessage {
			m.setStatus("Сообщение не отправлено: "+errString(ev.Err), true)
		} else {
			m.logger.Warn().Err(ev.Err).Str("conversation", ev.ConversationID).Msg("mark read failed")
		}
	case cache.EventRefreshFailed:
		m.setStatus("Не удалось обновить чаты: "+errString(ev.Err), true)
	case cache.EventRefreshed:
		if m.view.Sync(m.ctx) {
			m.cursor = 0
		}
	}
	m.refresh()
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Search):
		m.setFocus(FocusSearch)
		return m, nil
	case key.Matches(msg, m.keys.NextFocus):
		m.cycleFocus()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch m.focus {
	case FocusSearch:
		return m.handleSearchKey(msg)
	case FocusInput:
		return m.handleInputKey(msg)
	default:
		return m.handleListKey(msg)
	}
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case FocusList:
		if m.state.Current != nil {
			m.setFocus(FocusInput)
		} else {
			m.setFocus(FocusSearch)
		}
	case FocusInput:
		m.setFocus(FocusSearch)
	default:
		m.setFocus(FocusList)
	}
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.state.Conversations)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		m.openSelected()
	case key.Matches(msg, m.keys.Back):
		m.view.Deactivate()
		m.refresh()
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.search.SetValue("")
		m.view.SetSearchQuery("")
		m.setFocus(FocusList)
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Open), key.Matches(msg, m.keys.Down):
		m.setFocus(FocusList)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.view.SetSearchQuery(m.search.Value())
	m.cursor = 0
	m.refresh()
	return m, cmd
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		id := m.view.ActiveID()
		if id != "" && m.replier.Cancel(id) {
			m.setStatus("Ответ остановлен", false)
			return m, nil
		}
		m.setFocus(FocusList)
		return m, nil
	case key.Matches(msg, m.keys.Open):
		return m, m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openSelected activates the conversation under the cursor.
func (m *Model) openSelected() {
	if m.cursor < 0 || m.cursor >= len(m.state.Conversations) {
		return
	}
	id := m.state.Conversations[m.cursor].ID
	m.view.Activate(m.ctx, id)
	m.setStatus("", false)
	m.setFocus(FocusInput)
	m.refresh()
	m.viewport.GotoBottom()
}

// =============================================================================
// SUBMIT AND COMMANDS
// =============================================================================

func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.runCommand(text)
	}

	id := m.view.ActiveID()
	if id == "" {
		m.setStatus("Выберите чат", true)
		return nil
	}
	if _, err := m.replier.Submit(m.ctx, id, text); err != nil {
		if errors.Is(err, stream.ErrReplyBusy) {
			m.setStatus("Дождитесь ответа", true)
		} else {
			m.setStatus(err.Error(), true)
		}
		return nil
	}
	m.input.SetValue("")
	m.setStatus("", false)
	m.refresh()
	m.viewport.GotoBottom()
	return nil
}

func (m *Model) runCommand(line string) tea.Cmd {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/copy":
		return m.copyLastReply()
	case "/export":
		format := storage.FormatMarkdown
		if len(fields) > 1 {
			format = storage.ExportFormat(strings.ToLower(fields[1]))
		}
		return m.export(format)
	default:
		m.setStatus("Неизвестная команда "+fields[0]+" (доступны /export, /copy)", true)
		return nil
	}
}

func (m *Model) export(format storage.ExportFormat) tea.Cmd {
	conv := m.state.Current
	if conv == nil {
		m.setStatus("Выберите чат", true)
		return nil
	}
	snapshot := conv.Clone()
	dir := m.exportDir
	return func() tea.Msg {
		data, err := storage.Export(snapshot, format)
		if err != nil {
			return StatusMsg{Err: err}
		}
		ext := string(format)
		if format == "markdown" {
			ext = "md"
		}
		path := filepath.Join(dir, snapshot.ID+"."+ext)
		if err := util.AtomicWriteFile(path, data, 0644, 0755); err != nil {
			return StatusMsg{Err: fmt.Errorf("export failed: %w", err)}
		}
		return StatusMsg{Text: "Сохранено в " + path}
	}
}

func (m *Model) copyLastReply() tea.Cmd {
	conv := m.state.Current
	if conv == nil {
		return nil
	}
	var last *model.Message
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleAssistant {
			last = &conv.Messages[i]
			break
		}
	}
	if last == nil {
		m.setStatus("Нет ответа для копирования", true)
		return nil
	}
	text := last.Content
	clip := m.clipboard
	return func() tea.Msg {
		if err := clip(text); err != nil {
			return StatusMsg{Err: fmt.Errorf("clipboard: %w", err)}
		}
		return StatusMsg{Text: "Ответ скопирован"}
	}
}
