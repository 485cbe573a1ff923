// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/stream"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides line editing and persistent history for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [ID]",
		Short: "Line-mode chat with one conversation",
		Long: `chat opens a conversation (the AI assistant by default) and reads messages
from the prompt. Replies stream in as they are generated. Type /help for commands.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireTTY(); err != nil {
				return err
			}
			id := storage.SeedAssistantID
			if len(args) == 1 {
				id = args[0]
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				s := &chatSession{app: a, out: cmd.OutOrStdout(), p: newPalette(cmd.OutOrStdout())}
				if err := s.open(ctx, id); err != nil {
					return err
				}
				in := newLineReader()
				defer in.Close()
				return s.loop(ctx, in)
			})
		},
	}
}

// chatSession is the state of one REPL run.
type chatSession struct {
	app *app
	out io.Writer
	p   palette
	id  string
}

func (s *chatSession) open(ctx context.Context, id string) error {
	conv, err := findConversation(s.app, id)
	if err != nil {
		return err
	}
	s.id = conv.ID
	s.app.focus.Set(conv.ID)
	if err := s.app.cache.MarkAsRead(ctx, conv.ID); err != nil {
		return err
	}
	printTranscript(s.out, conv)
	return nil
}

func (s *chatSession) loop(ctx context.Context, in *lineReader) error {
	// Ctrl+C while a reply streams cancels the reply, not the session.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			if s.app.replier.Cancel(s.id) {
				fmt.Fprintln(s.out, "\n"+s.p.muted.Render("[Ответ остановлен]"))
			}
		}
	}()

	for {
		conv, _ := s.app.cache.Snapshot().Find(s.id)
		input, err := in.read(conv.Name + "> ")
		if err != nil {
			// Ctrl+C at the prompt or EOF ends the session.
			fmt.Fprintln(s.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.command(ctx, input)
			if err != nil {
				fmt.Fprintf(s.out, "%s %v\n", s.p.errText.Render("[Ошибка]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.send(ctx, input); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", s.p.errText.Render("[Ошибка]"), err)
		}
	}
}

// send submits input and prints the reply as it streams.
func (s *chatSession) send(ctx context.Context, input string) error {
	updates := s.app.replier.Updates()
	for drained := false; !drained; {
		select {
		case <-updates:
		default:
			drained = true
		}
	}

	turn, err := s.app.replier.Submit(ctx, s.id, input)
	if err != nil {
		return err
	}
	if !turn.Replying {
		if _, err := turn.Wait(ctx); err != nil {
			return err
		}
		fmt.Fprintln(s.out, s.p.muted.Render("✓"))
		return nil
	}

	conv, _ := s.app.cache.Snapshot().Find(s.id)
	fmt.Fprintf(s.out, "%s ", s.p.ai.Render(conv.Name+":"))

	var printed string
	show := func(text string) {
		if strings.HasPrefix(text, printed) {
			fmt.Fprint(s.out, text[len(printed):])
			printed = text
		}
	}
	for {
		select {
		case u := <-updates:
			if u.ConversationID == s.id && u.Phase == stream.PhaseStreaming {
				show(u.Text)
			}
		case <-turn.Done():
			reply, err := turn.Wait(ctx)
			if err == nil {
				show(reply.Content)
			}
			fmt.Fprintln(s.out)
			if errors.Is(err, stream.ErrReplyCanceled) {
				return nil
			}
			return err
		}
	}
}

// command runs a slash command. It reports whether the session should end.
func (s *chatSession) command(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(s.out, `/list             list conversations
/open ID          switch conversation
/search QUERY     find conversations by name
/show             print this conversation
/copy             copy the last reply to the clipboard
/export [md|json|yaml]  print this conversation in a format
/quit             leave`)

	case "/list", "/ls":
		return false, printConversations(s.out, s.app.cache.Snapshot(), false)

	case "/search":
		if len(fields) < 2 {
			return false, errors.New("usage: /search QUERY")
		}
		return false, printConversations(s.out, s.app.cache.Snapshot().Search(strings.Join(fields[1:], " ")), false)

	case "/open":
		if len(fields) != 2 {
			return false, errors.New("usage: /open ID")
		}
		return false, s.open(ctx, fields[1])

	case "/copy":
		conv, err := findConversation(s.app, s.id)
		if err != nil {
			return false, err
		}
		reply, ok := lastReply(conv)
		if !ok {
			return false, errors.New("no reply to copy")
		}
		if err := clipboard.WriteAll(reply.Content); err != nil {
			return false, fmt.Errorf("clipboard: %w", err)
		}
		fmt.Fprintln(s.out, s.p.muted.Render("Ответ скопирован"))

	case "/show":
		conv, err := findConversation(s.app, s.id)
		if err != nil {
			return false, err
		}
		printTranscript(s.out, conv)

	case "/export":
		format := storage.FormatMarkdown
		if len(fields) > 1 {
			format = storage.ExportFormat(strings.ToLower(fields[1]))
		}
		conv, err := findConversation(s.app, s.id)
		if err != nil {
			return false, err
		}
		data, err := storage.Export(conv, format)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, string(data))

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", util.Truncate(fields[0], 20))
	}
	return false, nil
}

// lastReply returns the newest assistant message in conv.
func lastReply(conv model.Conversation) (model.Message, bool) {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleAssistant {
			return conv.Messages[i], true
		}
	}
	return model.Message{}, false
}
