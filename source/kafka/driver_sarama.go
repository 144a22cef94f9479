package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"

	"bulkd/internal/logging"
	"bulkd/source"
)

// SaramaDriver consumes a consumer group and maps every partition claim to
// one session: the claim starting is a connect, the claim ending (rebalance
// or shutdown) is a disconnect. Each message value may carry several
// newline-separated commands, all stamped with the message timestamp.
type SaramaDriver struct {
	cfg   Config
	cl    sarama.Client
	group sarama.ConsumerGroup
}

func (d *SaramaDriver) Configure(raw any) error {
	config, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("kafka-source: expected Config, got %T", raw)
	}
	d.cfg = config

	ver, err := sarama.ParseKafkaVersion(config.Version)
	if err != nil {
		return err
	}
	sc := sarama.NewConfig()
	sc.Version = ver
	sc.Consumer.Return.Errors = true
	if config.TLSEn {
		sc.Net.TLS.Enable = true
	}
	if config.SASLUser != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.User, sc.Net.SASL.Password = config.SASLUser, config.SASLPass
	}
	switch config.StartFrom {
	case "oldest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	if d.cl, err = sarama.NewClient(config.Brokers, sc); err != nil {
		return err
	}
	d.group, err = sarama.NewConsumerGroupFromClient(config.GroupID, d.cl)
	return err
}

func (d *SaramaDriver) Run(ctx context.Context, open source.Opener) error {
	if d.group == nil {
		return errors.New("kafka-source: not configured")
	}
	go func() {
		for err := range d.group.Errors() {
			logging.L().Warn("kafka-source: consumer error", "err", err)
		}
	}()

	handler := &groupHandler{open: open}
	for {
		if err := d.group.Consume(ctx, d.cfg.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *SaramaDriver) Close() error {
	if d.group != nil {
		_ = d.group.Close()
	}
	if d.cl != nil {
		_ = d.cl.Close()
	}
	return nil
}

type groupHandler struct {
	open source.Opener
}

func (*groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	s, err := h.open()
	if err != nil {
		return err
	}
	defer s.Close()
	logging.L().Info("kafka-source: claim started", "session", s.ID(), "topic", claim.Topic(), "partition", claim.Partition())

	for {
		select {
		case <-sess.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			s.Receive(string(msg.Value), msg.Timestamp)
			sess.MarkMessage(msg, "")
		}
	}
}

func init() { source.Register("kafka", func() source.Adapter { return &SaramaDriver{} }) }
