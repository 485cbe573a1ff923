// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jeranaias/rigchat/internal/cache"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/repository"
)

// Appender is the cache surface the replier writes through.
type Appender interface {
	Snapshot() model.Collection
	AppendMessage(ctx context.Context, conversationID string, draft model.Draft) *cache.Mutation
}

// Phase is the reply state of one conversation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
)

func (p Phase) String() string {
	if p == PhaseStreaming {
		return "streaming"
	}
	return "idle"
}

// Update reports a change in a conversation's reply state. Text is the
// buffer so far while streaming. Err is set when a reply ended in failure.
type Update struct {
	ConversationID string
	Phase          Phase
	Text           string
	Err            error
}

// =============================================================================
// TURN
// =============================================================================

// Turn is the outcome of one Submit: the user's message and, for AI
// conversations, the streamed reply.
type Turn struct {
	ConversationID string
	User           *cache.Mutation
	Replying       bool

	done  chan struct{}
	reply model.Message
	err   error
}

// Done is closed when the turn has finished.
func (t *Turn) Done() <-chan struct{} { return t.done }

// Wait blocks until the turn finishes and returns the persisted reply.
// For non-AI conversations the reply is the zero Message.
func (t *Turn) Wait(ctx context.Context) (model.Message, error) {
	select {
	case <-t.done:
		return t.reply, t.err
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
}

// =============================================================================
// REPLIER
// =============================================================================

type session struct {
	cancel context.CancelFunc
	buf    strings.Builder
}

// Replier runs the idle -> streaming -> idle state machine for each
// conversation and persists finished replies through the cache.
type Replier struct {
	gen    Generator
	cache  Appender
	system string
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	updates  chan Update
	wg       sync.WaitGroup
}

// ReplierOption configures a Replier.
type ReplierOption func(*Replier)

// WithSystemPrompt sets the system instruction sent with every request.
// When empty the server's default applies.
func WithSystemPrompt(s string) ReplierOption {
	return func(r *Replier) { r.system = s }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ReplierOption {
	return func(r *Replier) { r.logger = l.With().Str("component", "replier").Logger() }
}

// NewReplier creates a Replier that streams from gen into c.
func NewReplier(gen Generator, c Appender, opts ...ReplierOption) *Replier {
	r := &Replier{
		gen:      gen,
		cache:    c,
		logger:   zerolog.Nop(),
		sessions: make(map[string]*session),
		updates:  make(chan Update, 256),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Updates delivers reply state changes. Updates are dropped when the
// channel is full.
func (r *Replier) Updates() <-chan Update {
	return r.updates
}

// Phase returns the reply state of a conversation.
func (r *Replier) Phase(conversationID string) Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conversationID]; ok {
		return PhaseStreaming
	}
	return PhaseIdle
}

// Typing returns the reply text buffered so far and whether a reply is
// streaming into the conversation.
func (r *Replier) Typing(conversationID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[conversationID]
	if !ok {
		return "", false
	}
	return s.buf.String(), true
}

// Cancel abandons the reply streaming into a conversation. The buffered text
// is discarded. It reports whether a reply was streaming.
func (r *Replier) Cancel(conversationID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[conversationID]
	r.mu.Unlock()
	if ok {
		s.cancel()
	}
	return ok
}

// Wait blocks until every in-flight reply has finished.
func (r *Replier) Wait() {
	r.wg.Wait()
}

// Submit appends the user's message and, for AI conversations, streams a
// reply. Submitting to a conversation that is already streaming fails with
// ErrReplyBusy.
func (r *Replier) Submit(ctx context.Context, conversationID, content string) (*Turn, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.sessions[conversationID]; busy {
		return nil, ErrReplyBusy
	}
	conv, ok := r.cache.Snapshot().Find(conversationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrConversationNotFound, conversationID)
	}

	turn := &Turn{
		ConversationID: conversationID,
		Replying:       conv.Kind == model.KindAI,
		done:           make(chan struct{}),
	}
	turn.User = r.cache.AppendMessage(ctx, conversationID, model.Draft{Content: content, Role: model.RoleUser})

	if !turn.Replying {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			_, turn.err = turn.User.Wait(context.WithoutCancel(ctx))
			close(turn.done)
		}()
		return turn, nil
	}

	req := ChatRequest{
		Messages: append(History(conv.Messages), HistoryMessage{Role: model.RoleUser, Content: content}),
		ChatID:   conversationID,
		System:   r.system,
	}
	sctx, cancel := context.WithCancel(ctx)
	s := &session{cancel: cancel}
	r.sessions[conversationID] = s
	r.notify(Update{ConversationID: conversationID, Phase: PhaseStreaming})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.run(sctx, ctx, s, turn, req)
	}()
	return turn, nil
}

func (r *Replier) run(sctx, parent context.Context, s *session, turn *Turn, req ChatRequest) {
	id := turn.ConversationID
	text, err := r.consume(sctx, s, id, req)

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if err == nil {
		// The reply must land after the user's message.
		if _, uerr := turn.User.Wait(context.WithoutCancel(parent)); uerr != nil {
			err = uerr
		} else {
			mut := r.cache.AppendMessage(context.WithoutCancel(parent), id, model.Draft{Content: text, Role: model.RoleAssistant})
			turn.reply, err = mut.Wait(context.WithoutCancel(parent))
		}
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrReplyCanceled):
		r.logger.Debug().Str("conversation", id).Msg("reply canceled")
	default:
		r.logger.Warn().Err(err).Str("conversation", id).Msg("reply failed")
	}
	turn.err = err
	r.notify(Update{ConversationID: id, Phase: PhaseIdle, Err: err})
	close(turn.done)
}

// consume drains the token stream into the session buffer.
func (r *Replier) consume(ctx context.Context, s *session, id string, req ChatRequest) (string, error) {
	fail := func(err error) (string, error) {
		if ctx.Err() != nil {
			return "", ErrReplyCanceled
		}
		return "", &StreamError{ConversationID: id, Err: err}
	}

	chunks, err := r.gen.Stream(ctx, req)
	if err != nil {
		return fail(err)
	}
	for {
		select {
		case <-ctx.Done():
			return "", ErrReplyCanceled
		case chunk, ok := <-chunks:
			if !ok {
				return fail(ErrTruncated)
			}
			if chunk.Err != nil {
				return fail(chunk.Err)
			}
			if chunk.Content != "" {
				r.mu.Lock()
				s.buf.WriteString(chunk.Content)
				text := s.buf.String()
				r.mu.Unlock()
				r.notify(Update{ConversationID: id, Phase: PhaseStreaming, Text: text})
			}
			if chunk.Done {
				r.mu.Lock()
				text := s.buf.String()
				r.mu.Unlock()
				if strings.TrimSpace(text) == "" {
					return fail(errors.New("empty reply"))
				}
				return text, nil
			}
		}
	}
}

func (r *Replier) notify(u Update) {
	select {
	case r.updates <- u:
	default:
	}
}
