package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/radieske/game-provider-platform/pkg/contracts/events"
)

type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes to "<subject>.<operator>" on JetStream. The event
// id doubles as the message id so redeliveries are deduplicated.
type NATSPublisher struct {
	js      streamPublisher
	subject string
	now     func() time.Time
}

func NewNATSPublisher(js jetstream.JetStream, subject string) *NATSPublisher {
	return &NATSPublisher{js: js, subject: subject, now: time.Now}
}

func (p *NATSPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	e.TsUnixMs = p.now().UnixMilli()
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal round_settled: %w", err)
	}
	_, err = p.js.Publish(ctx, p.subject+"."+e.OperatorID, b, jetstream.WithMsgID(e.EventID))
	return err
}

// EnsureStream creates the stream holding every "<subject>.>" message.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, subject string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{subject + ".>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}
