// Package harbor is the inter-node forwarding path, spec.md §12.2:
// original_source treats harbor purely as a compiled-in REMOTE_MESSAGE
// branch (a non-zero handle node byte means "forward"); this package
// implements exactly that split over an AMQP topic exchange via watermill,
// with a circuit breaker so a harbor-bound send fails fast when the
// broker is unreachable instead of blocking a worker goroutine.
package harbor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/villager-coder/skynet-go/internal/handle"
	"github.com/villager-coder/skynet-go/internal/mq"
)

const exchangeTopic = "skynet.harbor.v1"

// Harbor forwards messages addressed to a non-local node and delivers
// inbound ones to a callback, mirroring skynet's remote_message path.
type Harbor struct {
	localNode uint8
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// New dials amqpURL and returns a Harbor for localNode. deliver is invoked
// once per inbound envelope addressed to this node, with the envelope's
// target handle and decoded message.
func New(localNode uint8, amqpURL string, logger *slog.Logger, deliver func(handle.Handle, mq.Message)) (*Harbor, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	cfg := amqp.NewDurablePubSubConfig(amqpURL, amqp.GenerateQueueNameTopicNameWithSuffix(fmt.Sprintf("node-%d", localNode)))

	publisher, err := amqp.NewPublisher(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("harbor: publisher: %w", err)
	}

	subscriber, err := amqp.NewSubscriber(cfg, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("harbor: subscriber: %w", err)
	}

	messages, err := subscriber.Subscribe(context.Background(), exchangeTopic)
	if err != nil {
		return nil, fmt.Errorf("harbor: subscribe: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "harbor-publish",
	})

	h := &Harbor{localNode: localNode, publisher: publisher, breaker: breaker, logger: logger}

	go h.consume(messages, deliver)

	return h, nil
}

// Send forwards msg to target over the harbor, or returns (false, nil)
// when target is local (caller should fall through to Send in
// internal/actor instead).
func (h *Harbor) Send(target handle.Handle, msg mq.Message) (bool, error) {
	if target.Node() == h.localNode {
		return false, nil
	}

	env := encode(target, msg)
	_, err := h.breaker.Execute(func() (any, error) {
		return nil, h.publisher.Publish(exchangeTopic, env)
	})
	if err != nil {
		return true, fmt.Errorf("harbor: publish to node %d: %w", target.Node(), err)
	}
	return true, nil
}

// Close closes the publisher connection. The subscriber opened by New is
// not closed.
func (h *Harbor) Close() error {
	return h.publisher.Close()
}

func (h *Harbor) consume(messages <-chan *message.Message, deliver func(handle.Handle, mq.Message)) {
	for m := range messages {
		target, msg, err := decode(m.Payload)
		if err != nil {
			h.logger.Error("harbor: dropping malformed envelope", slog.Any("err", err))
			m.Ack()
			continue
		}
		deliver(target, msg)
		m.Ack()
	}
}

func encode(target handle.Handle, msg mq.Message) *message.Message {
	payload := make([]byte, 0, len(msg.Payload)+16)
	payload = append(payload, byte(target>>24), byte(target>>16), byte(target>>8), byte(target))
	payload = append(payload, byte(msg.Source>>24), byte(msg.Source>>16), byte(msg.Source>>8), byte(msg.Source))
	payload = append(payload, byte(msg.Kind))
	payload = append(payload, byte(msg.Session>>24), byte(msg.Session>>16), byte(msg.Session>>8), byte(msg.Session))
	payload = append(payload, msg.Payload...)
	return message.NewMessage(uuid.NewString(), payload)
}

func decode(raw []byte) (handle.Handle, mq.Message, error) {
	const headerSize = 13
	if len(raw) < headerSize {
		return 0, mq.Message{}, fmt.Errorf("harbor: envelope too short (%d bytes)", len(raw))
	}
	target := handle.Handle(uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3]))
	source := handle.Handle(uint32(raw[4])<<24 | uint32(raw[5])<<16 | uint32(raw[6])<<8 | uint32(raw[7]))
	kind := mq.Kind(raw[8])
	session := uint32(raw[9])<<24 | uint32(raw[10])<<16 | uint32(raw[11])<<8 | uint32(raw[12])
	return target, mq.Message{Source: source, Session: session, Kind: kind, Payload: raw[headerSize:]}, nil
}
