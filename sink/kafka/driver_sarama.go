package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"

	"bulkd/internal/bulk"
	"bulkd/internal/logging"
	"bulkd/internal/telemetry"
	"bulkd/sink"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
	Version string   `yaml:"version"`
	Codec   string   `yaml:"codec"` // proto|json (default proto)
	Workers int      `yaml:"workers"`
}

type driver struct {
	cfg Config
	p   sarama.AsyncProducer

	once sync.Once
	done chan struct{}
}

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return fmt.Errorf("kafka-sink: brokers and topic are required")
	}
	if cfg.Codec == "" {
		cfg.Codec = CodecProto
	}
	if cfg.Codec != CodecProto && cfg.Codec != CodecJSON {
		return fmt.Errorf("kafka-sink: unknown codec %q", cfg.Codec)
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Errors = true
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return err
		}
		sc.Version = ver
	}
	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return err
	}
	d.attach(cfg, p)
	return nil
}

// attach binds a ready producer and starts reporting its errors.
func (d *driver) attach(cfg Config, p sarama.AsyncProducer) {
	d.cfg, d.p = cfg, p
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		for perr := range p.Errors() {
			telemetry.SinkErrors.WithLabelValues("kafka").Inc()
			logging.L().Warn("kafka-sink: produce failed", "topic", perr.Msg.Topic, "err", perr.Err)
		}
	}()
}

func (d *driver) Write(ctx context.Context, _ int, b bulk.Block) error {
	val, err := Encode(b, d.cfg.Codec)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:     d.cfg.Topic,
		Value:     sarama.ByteEncoder(val),
		Timestamp: b.Time,
	}
	select {
	case d.p.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *driver) Close() error {
	var err error
	d.once.Do(func() {
		if d.p == nil {
			return
		}
		err = d.p.Close()
		<-d.done
	})
	return err
}

func (d *driver) Workers() int { return d.cfg.Workers }

func init() { sink.Register("kafka", func() sink.Adapter { return &driver{} }) }
