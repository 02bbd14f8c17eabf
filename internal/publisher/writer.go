package publisher

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// SnapshotWriter delivers snapshot events. One kafka.Writer serves every topic;
// the topic travels on each message.
type SnapshotWriter struct {
	writer *kafka.Writer
}

// WriterOption tunes the underlying kafka.Writer.
type WriterOption func(*kafka.Writer)

// WithBatchTimeout bounds how long a lone snapshot waits for batch companions.
func WithBatchTimeout(d time.Duration) WriterOption {
	return func(w *kafka.Writer) {
		if d > 0 {
			w.BatchTimeout = d
		}
	}
}

// WithWriteTimeout bounds a single write to the brokers.
func WithWriteTimeout(d time.Duration) WriterOption {
	return func(w *kafka.Writer) {
		if d > 0 {
			w.WriteTimeout = d
		}
	}
}

// NewSnapshotWriter builds a writer for brokers. Snapshots are keyed by week,
// so the hash balancer keeps one week on one partition.
func NewSnapshotWriter(brokers []string, opts ...WriterOption) *SnapshotWriter {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		// One snapshot per poll: waiting the default second for a batch only adds latency.
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return &SnapshotWriter{writer: w}
}

// WriteMessages writes msgs to topic.
func (s *SnapshotWriter) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return s.writer.WriteMessages(ctx, withTopic(topic, msgs)...)
}

// Close flushes pending messages and releases broker connections.
func (s *SnapshotWriter) Close() error {
	return s.writer.Close()
}

func withTopic(topic string, msgs []kafka.Message) []kafka.Message {
	out := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		msg.Topic = topic
		out[i] = msg
	}
	return out
}
