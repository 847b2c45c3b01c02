package broker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const subscriptionBuffer = 100

type subscription struct {
	ch   chan Message
	done <-chan struct{}
}

// InMemoryBroker delivers messages to every subscription of a topic within one
// process. It is used for local runs and tests.
type InMemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*subscription // topic -> groupID -> subscription
	closed bool

	offsetMu sync.Mutex
	offsets  map[string]int64
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subs:    make(map[string]map[string]*subscription),
		offsets: make(map[string]int64),
	}
}

// Publish delivers value to every current subscriber of topic. It blocks while
// a subscriber's buffer is full, until ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	// Delivery happens under the read lock so Close cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    b.nextOffset(topic),
		Timestamp: time.Now().UnixMilli(),
	}

	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *InMemoryBroker) nextOffset(topic string) int64 {
	b.offsetMu.Lock()
	defer b.offsetMu.Unlock()
	offset := b.offsets[topic]
	b.offsets[topic]++
	return offset
}

// Subscribe registers a consumer for topic. Messages published before the
// subscription are not replayed.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if _, exists := b.subs[topic][groupID]; exists {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, groupID)
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[string]*subscription)
	}

	sub := &subscription{ch: make(chan Message, subscriptionBuffer), done: ctx.Done()}
	b.subs[topic][groupID] = sub

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.subs[topic][groupID] == sub {
			delete(b.subs[topic], groupID)
			close(sub.ch)
		}
	}()

	return sub.ch, nil
}

// Subscribed reports whether groupID currently consumes topic.
func (b *InMemoryBroker) Subscribed(topic, groupID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.subs[topic][groupID]
	return ok
}

// Close closes every subscription channel.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for topic, groups := range b.subs {
		for _, sub := range groups {
			close(sub.ch)
		}
		delete(b.subs, topic)
	}
	return nil
}
