package session

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"bulkd/internal/bulk"
	"bulkd/internal/processor"
)

type recorder struct {
	blocks []bulk.Block
}

func (r *recorder) Push(b bulk.Block) { r.blocks = append(r.blocks, b) }
func (r *recorder) Drain()            {}

func (r *recorder) texts() [][]string {
	out := make([][]string, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b.Texts())
	}
	return out
}

func run(t *testing.T, threshold int, input []string, opts processor.Options) ([][]string, *Session) {
	t.Helper()
	rec := &recorder{}
	s, err := New(threshold, rec, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, in := range input {
		s.Handle(bulk.Command{Text: in, Time: time.Now()})
	}
	s.Close()
	return rec.texts(), s
}

func TestSession_ExplicitBlock(t *testing.T) {
	got, _ := run(t, 10, []string{"a", "{", "b", "c", "}", "d"}, processor.Options{})
	want := [][]string{{"a"}, {"b", "c"}, {"d"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestSession_NestedBlocksAbsorbed(t *testing.T) {
	got, _ := run(t, 10, []string{"{", "a", "{", "b", "}", "c", "}"}, processor.Options{})
	want := [][]string{{"a", "b", "c"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestSession_ThresholdAroundBlocks(t *testing.T) {
	in := []string{"1", "2", "3", "4", "{", "5", "6", "7", "8", "}", "9"}
	got, _ := run(t, 3, in, processor.Options{})
	want := [][]string{{"1", "2", "3"}, {"4"}, {"5", "6", "7", "8"}, {"9"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestSession_UnbalancedEndIsNoop(t *testing.T) {
	rec := &recorder{}
	s, err := New(10, rec, processor.Options{})
	if err != nil {
		t.Fatal(err)
	}
	for _, in := range []string{"}", "}", "a", "{", "b", "}", "c"} {
		s.Handle(bulk.Command{Text: in, Time: time.Now()})
		if s.Depth() < 0 {
			t.Fatalf("depth went negative after %q", in)
		}
	}
	s.Close()
	want := [][]string{{"a"}, {"b"}, {"c"}}
	if got := rec.texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestSession_CloseWithPending(t *testing.T) {
	got, _ := run(t, 5, []string{"a", "b"}, processor.Options{})
	want := [][]string{{"a", "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestSession_CloseInsideBlockDropsContent(t *testing.T) {
	got, s := run(t, 5, []string{"a", "{", "b", "c"}, processor.Options{})
	want := [][]string{{"a"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if s.Depth() != 1 {
		t.Fatalf("depth = %d", s.Depth())
	}
}

func TestSession_CloseInsideBlockFlushWhenConfigured(t *testing.T) {
	got, _ := run(t, 5, []string{"a", "{", "b", "{", "c"}, processor.Options{FlushOpenBlock: true})
	want := [][]string{{"a"}, {"b", "c"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestSession_CloseIdempotent(t *testing.T) {
	rec := &recorder{}
	s, _ := New(5, rec, processor.Options{})
	s.Handle(bulk.Command{Text: "a", Time: time.Now()})
	s.Close()
	s.Close()
	s.Handle(bulk.Command{Text: "late", Time: time.Now()})
	if len(rec.blocks) != 1 {
		t.Fatalf("want 1 block, got %d", len(rec.blocks))
	}
}

func TestSession_ReceiveSplitsLines(t *testing.T) {
	rec := &recorder{}
	s, _ := New(2, rec, processor.Options{})
	now := time.Unix(1_700_000_000, 0)
	s.Receive("cmd1\n\ncmd2\ncmd3\n", now)
	s.Receive(strings.Join([]string{"{", "x", "y", "z", "}"}, "\n"), now)
	s.Close()

	want := [][]string{{"cmd1", "cmd2"}, {"cmd3"}, {"x", "y", "z"}}
	if got := rec.texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if !rec.blocks[0].Time.Equal(now) {
		t.Fatalf("unexpected block time %v", rec.blocks[0].Time)
	}
}
