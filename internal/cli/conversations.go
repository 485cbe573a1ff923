// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/repository"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

// withApp opens the stack, loads it and runs fn.
func withApp(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(opts.cfg, opts.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := contextOrBackground(cmd)
	if err := a.load(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

// findConversation returns the conversation with id from the cache view.
func findConversation(a *app, id string) (model.Conversation, error) {
	conv, ok := a.cache.Snapshot().Find(id)
	if !ok {
		return model.Conversation{}, fmt.Errorf("%w: %s", repository.ErrConversationNotFound, id)
	}
	return conv, nil
}

// =============================================================================
// LIST / SEARCH
// =============================================================================

func newListCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				return printConversations(cmd.OutOrStdout(), a.cache.Snapshot(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "List conversations whose name contains QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				matches, err := a.repo.Search(ctx, args[0])
				if err != nil {
					return err
				}
				return printConversations(cmd.OutOrStdout(), matches, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

// conversationSummary is the JSON row printed by list and search.
type conversationSummary struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        model.Kind     `json:"type"`
	UnreadCount int            `json:"unreadCount"`
	Online      bool           `json:"isOnline"`
	LastMessage *model.Message `json:"lastMessage,omitempty"`
}

func printConversations(w io.Writer, coll model.Collection, asJSON bool) error {
	if asJSON {
		rows := make([]conversationSummary, 0, len(coll))
		for _, c := range coll {
			rows = append(rows, conversationSummary{
				ID:          c.ID,
				Name:        c.Name,
				Type:        c.Kind,
				UnreadCount: c.UnreadCount,
				Online:      c.Online(),
				LastMessage: c.LastMessage,
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(coll) == 0 {
		fmt.Fprintln(w, "Чаты не найдены")
		return nil
	}

	p := newPalette(w)
	width := terminalWidth(w)
	for _, c := range coll {
		dot := " "
		if c.Online() {
			dot = p.online.Render("●")
		}
		line := fmt.Sprintf("%s %s %s", dot, p.name.Render(c.Name), p.muted.Render("("+c.ID+")"))
		if c.UnreadCount > 0 {
			line += " " + p.badge.Render(fmt.Sprintf(" %d ", c.UnreadCount))
		}
		fmt.Fprintln(w, line)

		if c.LastMessage != nil {
			when := humanize.Time(c.LastMessage.Time())
			preview := util.Preview(c.LastMessage.Content, width-util.Width(when)-8)
			fmt.Fprintf(w, "    %s  %s\n", preview, p.muted.Render(when))
		} else {
			fmt.Fprintf(w, "    %s\n", p.muted.Render("Нет сообщений"))
		}
	}
	return nil
}

// =============================================================================
// SHOW
// =============================================================================

func newShowCmd(opts *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a conversation's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				conv, err := findConversation(a, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					data, err := storage.ExportJSON(conv)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				printTranscript(cmd.OutOrStdout(), conv)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printTranscript(w io.Writer, conv model.Conversation) {
	p := newPalette(w)
	status := "был(а) недавно"
	if conv.Online() {
		status = "в сети"
	}
	fmt.Fprintf(w, "%s  %s\n\n", p.name.Render(conv.Name), p.muted.Render(status))
	if len(conv.Messages) == 0 {
		fmt.Fprintln(w, p.muted.Render("Нет сообщений"))
		return
	}
	for _, m := range conv.Messages {
		fmt.Fprintln(w, formatMessage(p, m))
	}
}

func formatMessage(p palette, m model.Message) string {
	who := p.ai.Render(m.Role.DisplayName())
	if m.Role == model.RoleUser {
		who = p.user.Render(m.Role.DisplayName())
	}
	return fmt.Sprintf("%s %s\n%s\n", who, p.muted.Render(m.Time().Format("02.01.2006 15:04")), m.Content)
}

// =============================================================================
// SEND / READ
// =============================================================================

func newSendCmd(opts *globalOptions) *cobra.Command {
	var noReply bool
	cmd := &cobra.Command{
		Use:   "send ID MESSAGE...",
		Short: "Send a message and print the reply for AI conversations",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, text := args[0], strings.Join(args[1:], " ")
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = string(data)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := findConversation(a, id); err != nil {
					return err
				}
				// The reply is printed here, so it does not count as unread.
				a.focus.Set(id)
				if noReply {
					msg, err := a.cache.SendMessage(ctx, id, model.Draft{Content: strings.TrimSpace(text), Role: model.RoleUser})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), msg.ID)
					return nil
				}

				turn, err := a.replier.Submit(ctx, id, text)
				if err != nil {
					return err
				}
				reply, err := turn.Wait(ctx)
				if err != nil {
					return err
				}
				if !turn.Replying {
					msg, err := turn.User.Wait(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), msg.ID)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noReply, "no-reply", false, "append the message without requesting a reply")
	return cmd
}

func newReadCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "read ID",
		Short: "Mark a conversation as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := findConversation(a, args[0]); err != nil {
					return err
				}
				return a.cache.MarkAsRead(ctx, args[0])
			})
		},
	}
}

// =============================================================================
// EXPORT
// =============================================================================

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Export a conversation as Markdown, JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				conv, err := findConversation(a, args[0])
				if err != nil {
					return err
				}
				data, err := storage.Export(conv, storage.ExportFormat(strings.ToLower(format)))
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := util.AtomicWriteFile(output, data, 0644, 0755); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %s to %s\n", conv.ID, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "export format: md, json, yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

var errNotInteractive = errors.New("this command needs an interactive terminal")

// requireTTY fails when stdin is not a terminal.
func requireTTY() error {
	if !isTerminal(os.Stdin) {
		return errNotInteractive
	}
	return nil
}
