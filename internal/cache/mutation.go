// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"context"
	"sync"

	"github.com/jeranaias/rigchat/internal/model"
)

// Op names a mutation kind.
type Op string

const (
	OpAppendMessage Op = "append-message"
	OpMarkRead      Op = "mark-read"
)

// State is the lifecycle position of a mutation.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
	StateSettled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled-back"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// =============================================================================
// MUTATION
// =============================================================================

// Mutation is one optimistic write. It is created by the Cache and settles
// exactly once.
type Mutation struct {
	op             Op
	conversationID string
	draft          model.Draft
	temp           model.Message
	ctx            context.Context

	mu        sync.Mutex
	state     State
	result    model.Message
	err       error
	commitSeq uint64
	done      chan struct{}
}

func newMutation(ctx context.Context, op Op, conversationID string) *Mutation {
	return &Mutation{
		op:             op,
		conversationID: conversationID,
		ctx:            ctx,
		state:          StatePending,
		done:           make(chan struct{}),
	}
}

// Op returns the mutation kind.
func (m *Mutation) Op() Op { return m.op }

// ConversationID returns the target conversation.
func (m *Mutation) ConversationID() string { return m.conversationID }

// TempID returns the temporary id shown while an append is pending.
func (m *Mutation) TempID() string { return m.temp.ID }

// State returns the current lifecycle state.
func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Done is closed once the mutation has settled.
func (m *Mutation) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until the mutation settles or ctx is done. For appends it
// returns the durable message.
func (m *Mutation) Wait(ctx context.Context) (model.Message, error) {
	select {
	case <-m.done:
	case <-ctx.Done():
		return model.Message{}, ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result, m.err
}

// Err returns the rollback error, or nil if the mutation has not failed.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Mutation) pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StatePending
}

// apply patches conv in place. Caller holds the cache lock.
func (m *Mutation) apply(coll model.Collection) {
	i := coll.Index(m.conversationID)
	if i < 0 {
		return
	}
	conv := &coll[i]

	m.mu.Lock()
	state, result := m.state, m.result
	m.mu.Unlock()

	switch m.op {
	case OpAppendMessage:
		switch state {
		case StatePending:
			conv.Append(m.temp)
		case StateCommitted, StateSettled:
			if !conv.HasMessage(result.ID) {
				conv.Append(result)
			}
		}
	case OpMarkRead:
		if state != StateRolledBack {
			conv.UnreadCount = 0
		}
	}
}
