package kafka

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"bulkd/internal/bulk"
)

const (
	CodecProto = "proto"
	CodecJSON  = "json"
)

// Encode serialises b as a google.protobuf.Struct:
//
//	{timestamp, rendered, commands: [{text, timestamp}...]}
func Encode(b bulk.Block, codec string) ([]byte, error) {
	cmds := make([]any, len(b.Commands))
	for i, c := range b.Commands {
		cmds[i] = map[string]any{
			"text":      c.Text,
			"timestamp": c.Time.UTC().Format(time.RFC3339Nano),
		}
	}
	st, err := structpb.NewStruct(map[string]any{
		"timestamp": b.Time.UTC().Format(time.RFC3339Nano),
		"rendered":  bulk.Render(b),
		"commands":  cmds,
	})
	if err != nil {
		return nil, fmt.Errorf("kafka-sink: encode block: %w", err)
	}
	switch codec {
	case CodecJSON:
		return protojson.Marshal(st)
	default:
		return proto.Marshal(st)
	}
}

// Decode is the inverse of Encode.
func Decode(raw []byte, codec string) (bulk.Block, error) {
	st := &structpb.Struct{}
	var err error
	switch codec {
	case CodecJSON:
		err = protojson.Unmarshal(raw, st)
	default:
		err = proto.Unmarshal(raw, st)
	}
	if err != nil {
		return bulk.Block{}, fmt.Errorf("kafka-sink: decode block: %w", err)
	}

	var b bulk.Block
	if b.Time, err = time.Parse(time.RFC3339Nano, st.Fields["timestamp"].GetStringValue()); err != nil {
		return bulk.Block{}, fmt.Errorf("kafka-sink: block timestamp: %w", err)
	}
	for _, v := range st.Fields["commands"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		ts, err := time.Parse(time.RFC3339Nano, f["timestamp"].GetStringValue())
		if err != nil {
			return bulk.Block{}, fmt.Errorf("kafka-sink: command timestamp: %w", err)
		}
		b.Commands = append(b.Commands, bulk.Command{Text: f["text"].GetStringValue(), Time: ts})
	}
	return b, nil
}
