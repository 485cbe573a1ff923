// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/rigchat/internal/model"
)

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// ExportFormat names an export encoding.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "md"
	FormatJSON     ExportFormat = "json"
	FormatYAML     ExportFormat = "yaml"
)

// Export encodes conv in the requested format.
func Export(conv model.Conversation, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatMarkdown, "markdown":
		return []byte(ExportMarkdown(conv)), nil
	case FormatJSON:
		return ExportJSON(conv)
	case FormatYAML, "yml":
		return ExportYAML(conv)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportMarkdown renders the conversation as a Markdown transcript.
func ExportMarkdown(conv model.Conversation) string {
	var sb strings.Builder
	title := conv.Name
	if conv.Avatar != "" {
		title = conv.Avatar + " " + title
	}
	sb.WriteString("# " + title + "\n\n")
	sb.WriteString("Conversation: `" + conv.ID + "`\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		role := "**" + msg.Role.DisplayName() + "**"
		if msg.Role == model.RoleAssistant {
			role = "**" + conv.Name + "**"
		}
		sb.WriteString(role + " (" + msg.Time().Format(time.DateTime) + "):\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON encodes the conversation as indented JSON in the blob layout.
func ExportJSON(conv model.Conversation) ([]byte, error) {
	return json.MarshalIndent(conv, "", "  ")
}

type yamlMessage struct {
	ID      string    `yaml:"id"`
	Role    string    `yaml:"role"`
	Time    time.Time `yaml:"time"`
	Status  string    `yaml:"status,omitempty"`
	Content string    `yaml:"content"`
}

type yamlConversation struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	Avatar   string        `yaml:"avatar,omitempty"`
	Unread   int           `yaml:"unread"`
	Messages []yamlMessage `yaml:"messages"`
}

// ExportYAML encodes the conversation as YAML with RFC 3339 timestamps.
func ExportYAML(conv model.Conversation) ([]byte, error) {
	out := yamlConversation{
		ID:       conv.ID,
		Name:     conv.Name,
		Type:     string(conv.Kind),
		Avatar:   conv.Avatar,
		Unread:   conv.UnreadCount,
		Messages: make([]yamlMessage, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		out.Messages = append(out.Messages, yamlMessage{
			ID:      msg.ID,
			Role:    msg.Role.String(),
			Time:    msg.Time().UTC(),
			Status:  string(msg.Status),
			Content: msg.Content,
		})
	}
	return yaml.Marshal(out)
}
