package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka publishes changes to a topic and runs a consumer that hands every
// change (including this instance's own) to local subscribers.
type Kafka struct {
	writer *kafka.Writer
	reader *kafka.Reader
	local  *Local
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKafka wires a writer and a per-instance consumer group so that every
// instance sees every change.
func NewKafka(brokers []string, topic, groupID string) *Kafka {
	host, _ := os.Hostname()
	if host == "" {
		host = "local"
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			Topic:       topic,
			GroupID:     groupID + "-" + host,
			StartOffset: kafka.LastOffset,
			MinBytes:    1,
			MaxBytes:    1 << 20,
		}),
		local: NewLocal(),
		done:  make(chan struct{}),
	}
}

func (k *Kafka) Subscribe(fn func(Change)) { k.local.Subscribe(fn) }

func (k *Kafka) Publish(ctx context.Context, ch Change) error {
	if ch.At.IsZero() {
		ch.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	msg := kafka.Message{Key: []byte(ch.Resource), Value: payload}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s/%s: %w", ch.Resource, ch.Action, err)
	}
	return nil
}

// Start runs the consumer loop until ctx is cancelled or Close is called.
func (k *Kafka) Start(ctx context.Context) {
	ctx, k.cancel = context.WithCancel(ctx)
	go func() {
		defer close(k.done)
		log.Printf("✅ Change feed consumer started on topic %s", k.reader.Config().Topic)
		for {
			m, err := k.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				log.Printf("⚠️ change feed read failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			var ch Change
			if err := json.Unmarshal(m.Value, &ch); err != nil {
				log.Printf("⚠️ dropping malformed change message at offset %d: %v", m.Offset, err)
				continue
			}
			k.local.dispatch(ch)
		}
	}()
}

func (k *Kafka) Close() error {
	if k.cancel != nil {
		k.cancel()
		<-k.done
	}
	return errors.Join(k.reader.Close(), k.writer.Close())
}
