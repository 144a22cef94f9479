package kafka

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"

	"bulkd/internal/bulk"
)

func block(texts ...string) bulk.Block {
	ts := time.Unix(1_700_000_000, 0).UTC()
	cmds := make([]bulk.Command, len(texts))
	for i, s := range texts {
		cmds[i] = bulk.Command{Text: s, Time: ts}
	}
	return bulk.NewBlock(cmds)
}

func TestEncode_RoundTrip(t *testing.T) {
	for _, codec := range []string{CodecProto, CodecJSON} {
		in := block("a", "b")
		raw, err := Encode(in, codec)
		if err != nil {
			t.Fatalf("%s: Encode: %v", codec, err)
		}
		out, err := Decode(raw, codec)
		if err != nil {
			t.Fatalf("%s: Decode: %v", codec, err)
		}
		if bulk.Render(out) != "bulk: a, b" || !out.Time.Equal(in.Time) {
			t.Fatalf("%s: round trip mismatch: %+v", codec, out)
		}
	}
}

func TestDriver_WriteProducesEncodedBlock(t *testing.T) {
	p := mocks.NewAsyncProducer(t, nil)
	p.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		b, err := Decode(val, CodecProto)
		if err != nil {
			return err
		}
		if got := bulk.Render(b); got != "bulk: x, y" {
			return fmt.Errorf("unexpected block %q", got)
		}
		return nil
	})

	d := &driver{}
	d.attach(Config{Topic: "bulks", Codec: CodecProto}, p)
	if err := d.Write(context.Background(), 0, block("x", "y")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDriver_ConfigureValidates(t *testing.T) {
	d := &driver{}
	if err := d.Configure("nope"); err == nil {
		t.Fatal("expected type error")
	}
	if err := d.Configure(Config{Topic: "t"}); err == nil {
		t.Fatal("expected error without brokers")
	}
	if err := d.Configure(Config{Brokers: []string{"localhost:9092"}, Topic: "t", Codec: "avro"}); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}
