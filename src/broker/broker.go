// Package broker moves messages between the insight agents.
package broker

import (
	"context"
	"errors"
)

// ErrClosed is returned by a broker after Close.
var ErrClosed = errors.New("broker is closed")

// Broker abstracts message publishing and consumption.
// Both implementations give each (topic, groupID) pair exactly one subscription.
type Broker interface {
	// Publish sends a message to a topic. The key (the run id) keeps the
	// messages of one run on one partition.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Subscribe returns a channel of messages for a topic. The channel is
	// closed when ctx is cancelled or the broker is closed.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Offset    int64
	Partition int32
	Timestamp int64
}

// New returns a Redpanda broker when addresses are given, otherwise an in-memory one.
func New(brokers []string, opts ...RedpandaOption) (Broker, error) {
	if len(brokers) == 0 {
		return NewInMemoryBroker(), nil
	}
	return NewRedpandaBroker(brokers, opts...)
}
