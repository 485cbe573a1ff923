// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

// EventType identifies a cache notification.
type EventType int

const (
	EventMutationStarted EventType = iota
	EventMutationCommitted
	EventMutationRolledBack
	EventRefreshed
	EventRefreshFailed
)

// Event announces that the derived view changed or a write failed.
type Event struct {
	Type           EventType
	Op             Op
	ConversationID string
	Err            error
}

const subscriberBuffer = 64

// Subscribe returns a channel of cache events and a function that removes
// the subscription. Slow subscribers miss events rather than block the cache.
func (c *Cache) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
		c.subMu.Unlock()
	}
}

func (c *Cache) emit(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
