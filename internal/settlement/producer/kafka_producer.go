package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/game-provider-platform/pkg/contracts/events"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher keys messages by round so every update of a round lands on
// the same partition.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaPublisher(w *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w, now: time.Now}
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	e.TsUnixMs = p.now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal round_settled: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(e.RoundID), Value: b})
}
