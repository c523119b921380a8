package mq

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// Memory is an in-process Backend. Every subscriber of a channel receives
// every message published after it subscribed.
type Memory struct {
	mu     sync.Mutex
	next   int
	subs   map[string][]*memorySub
	closed bool
}

type memorySub struct {
	ch   chan Message
	done chan struct{}
}

// NewMemory constructs an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]*memorySub)}
}

// Publish delivers data to the channel's current subscribers.
func (m *Memory) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", errors.New("memory broker closed")
	}
	m.next++
	msg := Message{ID: strconv.Itoa(m.next), Data: data, Attributes: attrs}
	subs := append([]*memorySub(nil), m.subs[channel]...)
	m.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return msg.ID, nil
}

// Subscribe hands messages to handler until ctx is done.
func (m *Memory) Subscribe(ctx context.Context, channel string, handler Handler) error {
	sub := &memorySub{ch: make(chan Message, 16), done: make(chan struct{})}
	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], sub)
	m.mu.Unlock()

	defer m.unsubscribe(channel, sub)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-sub.ch:
			_ = handler(ctx, msg)
		}
	}
}

// Close rejects further publishes.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Subscribers reports how many subscribers are attached to channel.
func (m *Memory) Subscribers(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[channel])
}

// unsubscribe detaches sub and releases publishers blocked on its buffer.
func (m *Memory) unsubscribe(channel string, target *memorySub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	close(target.done)
	subs := m.subs[channel]
	for i, sub := range subs {
		if sub == target {
			m.subs[channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
