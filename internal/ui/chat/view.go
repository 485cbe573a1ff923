// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// View renders the screen.
func (m *Model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), m.renderMain())
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatus())
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar() string {
	t := m.theme
	var b strings.Builder

	b.WriteString(t.SidebarTitle.Render("Чаты"))
	b.WriteString("\n")
	searchStyle := t.Search
	if m.focus == FocusSearch {
		searchStyle = t.SearchFocused
	}
	b.WriteString(searchStyle.Width(styles.SidebarWidth - 2).Render(m.search.View()))
	b.WriteString("\n")

	convs := m.state.Conversations
	switch {
	case !m.loaded:
		b.WriteString(t.EmptyList.Render("Загрузка..."))
	case len(convs) == 0:
		b.WriteString(t.EmptyList.Render("Чаты не найдены"))
	default:
		for i := range convs {
			b.WriteString(m.renderItem(&convs[i], i == m.cursor))
			b.WriteString("\n")
		}
	}

	return t.Sidebar.Height(m.height - statusHeight).Render(b.String())
}

func (m *Model) renderItem(conv *model.Conversation, selected bool) string {
	t := m.theme
	inner := styles.SidebarWidth - 4

	avatar := avatarOf(conv)
	if conv.Online() {
		avatar += t.OnlineDot.Render("●")
	} else {
		avatar += " "
	}

	var meta string
	if conv.LastMessage != nil {
		meta = t.ItemTime.Render(formatTimestamp(conv.LastMessage.Time()))
	}
	nameWidth := inner - util.Width(avatar) - lipgloss.Width(meta) - 2
	top := avatar + " " + t.ItemName.Render(util.PadRight(util.Truncate(conv.Name, nameWidth), nameWidth)) + " " + meta

	preview := "Нет сообщений"
	if conv.LastMessage != nil {
		preview = conv.LastMessage.Content
	}
	var badge string
	if conv.UnreadCount > 0 {
		badge = t.UnreadBadge.Render(fmt.Sprint(conv.UnreadCount))
	}
	previewWidth := inner - 3 - lipgloss.Width(badge)
	bottom := "   " + t.ItemPreview.Render(util.PadRight(util.Preview(preview, previewWidth), previewWidth)) + badge

	style := t.Item
	switch {
	case conv.ID == m.state.ActiveID:
		style = t.ItemActive
	case selected && m.focus == FocusList:
		style = t.ItemSelected
	}
	return style.Width(styles.SidebarWidth - 2).Render(top + "\n" + bottom)
}

func avatarOf(conv *model.Conversation) string {
	if conv.Avatar != "" {
		return conv.Avatar
	}
	for _, r := range conv.Name {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// =============================================================================
// MAIN PANE
// =============================================================================

func (m *Model) renderMain() string {
	width := m.mainWidth()
	conv := m.state.Current
	if conv == nil {
		return m.renderPlaceholder(width)
	}

	t := m.theme
	status := "был(а) недавно"
	if conv.Online() {
		status = t.OnlineDot.Render("в сети")
	}
	if m.state.Typing {
		status = t.Typing.Render("печатает...")
	}
	header := t.Header.Width(width).Render(
		avatarOf(conv) + " " + t.HeaderName.Render(conv.Name) + "  " + t.HeaderStatus.Render(status),
	)

	inputStyle := t.Input
	if m.focus == FocusInput {
		inputStyle = t.InputFocused
	}
	input := inputStyle.Width(width - 2).Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), input)
}

func (m *Model) renderPlaceholder(width int) string {
	t := m.theme
	text := t.PlaceholderTitle.Render("Выберите чат") + "\n\n" +
		"Выберите чат из списка слева, чтобы начать общение"
	return lipgloss.Place(width, m.height-statusHeight, lipgloss.Center, lipgloss.Center,
		t.Placeholder.Render(text))
}

// renderMessages rebuilds the viewport content for the open conversation.
func (m *Model) renderMessages() {
	conv := m.state.Current
	if conv == nil {
		m.viewport.SetContent("")
		return
	}
	atBottom := m.viewport.AtBottom()

	width := m.mainWidth()
	bubbleWidth := width * 3 / 4
	if bubbleWidth < 16 {
		bubbleWidth = width
	}

	var b strings.Builder
	for i := range conv.Messages {
		b.WriteString(m.renderBubble(&conv.Messages[i], width, bubbleWidth))
		b.WriteString("\n")
	}
	if m.state.Typing {
		b.WriteString(m.renderTyping(width, bubbleWidth))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) renderBubble(msg *model.Message, width, bubbleWidth int) string {
	t := m.theme
	stamp := formatTimestamp(msg.Time())

	if msg.Role == model.RoleUser {
		style := t.UserBubble
		mark := " ✓"
		if msg.IsTemporary() {
			style = t.PendingBubble
			mark = " …"
		}
		content := wrapText(msg.Content, bubbleWidth-2) + "\n" + t.BubbleTime.Render(stamp+mark)
		return lipgloss.PlaceHorizontal(width, lipgloss.Right, style.MaxWidth(bubbleWidth).Render(content))
	}

	content := m.renderMarkdown(msg.Content, bubbleWidth-2) + "\n" + t.BubbleTime.Render(stamp)
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, t.AssistantBubble.MaxWidth(bubbleWidth).Render(content))
}

func (m *Model) renderTyping(width, bubbleWidth int) string {
	t := m.theme
	text := m.spinner.View() + " " + t.Typing.Render("печатает...")
	if m.state.TypingText != "" {
		text = wrapText(m.state.TypingText, bubbleWidth-2) + "\n" + text
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Left, t.AssistantBubble.MaxWidth(bubbleWidth).Render(text))
}

// renderMarkdown renders assistant content, falling back to wrapped text.
func (m *Model) renderMarkdown(content string, width int) string {
	r := m.markdown(width)
	if r == nil {
		return wrapText(content, width)
	}
	out, err := r.Render(content)
	if err != nil {
		return wrapText(content, width)
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatus() string {
	t := m.theme
	if m.status != "" {
		if m.statusErr {
			return t.StatusBar.Render(t.Error.Render(m.status))
		}
		return t.StatusBar.Render(m.status)
	}
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, t.ShortcutKey.Render(h.Key)+" "+t.ShortcutDesc.Render(h.Desc))
	}
	return t.StatusBar.Render(strings.Join(parts, "  "))
}
