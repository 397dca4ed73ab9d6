package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// KafkaBroker is the kafka equivalent of RedisBroker. Changes are keyed by
// event so one event's changes stay on one partition.
type KafkaBroker struct {
	writer *kafka.Writer
	reader *kafka.Reader
	hub    *Hub
	log    *log.Entry
}

// NewKafkaBroker needs a group id unique to this instance, since every
// instance must see every change.
func NewKafkaBroker(brokers []string, topic, groupId string, hub *Hub, logger *log.Entry) *KafkaBroker {
	return &KafkaBroker{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupId,
			Topic:       topic,
			MinBytes:    1,
			MaxBytes:    1 << 20,
			StartOffset: kafka.LastOffset,
		}),
		hub: hub,
		log: logger.WithField("component", "feed.kafka"),
	}
}

func (b *KafkaBroker) Publish(ctx context.Context, c Change) error {
	msg, err := encodeMessage(c)
	if err != nil {
		return err
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

func (b *KafkaBroker) Run(ctx context.Context) error {
	for {
		msg, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka read: %w", err)
		}
		c, err := decodeMessage(msg)
		if err != nil {
			b.log.WithError(err).WithField("offset", msg.Offset).Warn("skip malformed change")
			continue
		}
		_ = b.hub.Publish(ctx, c)
	}
}

func (b *KafkaBroker) Close() error {
	return errors.Join(b.writer.Close(), b.reader.Close())
}

func encodeMessage(c Change) (kafka.Message, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(c.EventId), 10)),
		Value: payload,
	}, nil
}

func decodeMessage(msg kafka.Message) (Change, error) {
	var c Change
	err := json.Unmarshal(msg.Value, &c)
	return c, err
}
