package processor

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"bulkd/internal/bulk"
	"bulkd/internal/logging"
)

type recorder struct {
	blocks []bulk.Block
	drains int
}

func (r *recorder) Push(b bulk.Block) { r.blocks = append(r.blocks, b) }
func (r *recorder) Drain()            { r.drains++ }

func (r *recorder) texts() [][]string {
	out := make([][]string, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b.Texts())
	}
	return out
}

func cmd(text string) bulk.Command { return bulk.Command{Text: text, Time: time.Now()} }

func newProc(t *testing.T, threshold int, opts Options) (*Processor, *recorder) {
	t.Helper()
	rec := &recorder{}
	p, err := New(threshold, rec, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, rec
}

func TestNew_RejectsNonPositiveThreshold(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := New(n, &recorder{}, Options{}); !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("threshold %d: want ErrInvalidThreshold, got %v", n, err)
		}
	}
}

func TestProcess_PartitionsByThreshold(t *testing.T) {
	for _, tc := range []struct{ n, threshold int }{
		{0, 3}, {1, 1}, {7, 3}, {9, 3}, {10, 4}, {5, 10},
	} {
		t.Run(fmt.Sprintf("n=%d,t=%d", tc.n, tc.threshold), func(t *testing.T) {
			p, rec := newProc(t, tc.threshold, Options{})
			for i := 0; i < tc.n; i++ {
				p.Process(cmd(fmt.Sprint(i)))
			}
			p.Close()

			next := 0
			for i, b := range rec.blocks {
				last := i == len(rec.blocks)-1
				if b.Len() == 0 || b.Len() > tc.threshold || (!last && b.Len() != tc.threshold) {
					t.Fatalf("block %d has %d commands", i, b.Len())
				}
				for _, c := range b.Commands {
					if c.Text != fmt.Sprint(next) {
						t.Fatalf("want command %d, got %s", next, c.Text)
					}
					next++
				}
			}
			if next != tc.n {
				t.Fatalf("emitted %d commands, want %d", next, tc.n)
			}
		})
	}
}

func TestBlockTimestampIsFirstCommand(t *testing.T) {
	p, rec := newProc(t, 2, Options{})
	first := time.Unix(1_700_000_000, 0)
	p.Process(bulk.Command{Text: "a", Time: first})
	p.Process(bulk.Command{Text: "b", Time: first.Add(time.Minute)})
	if len(rec.blocks) != 1 || !rec.blocks[0].Time.Equal(first) {
		t.Fatalf("unexpected blocks: %+v", rec.blocks)
	}
}

func TestExplicitBlockSuppressesThreshold(t *testing.T) {
	p, rec := newProc(t, 2, Options{})
	p.Process(cmd("a"))
	p.StartBlock()
	for _, s := range []string{"b", "c", "d", "e"} {
		p.Process(cmd(s))
	}
	if len(rec.blocks) != 1 {
		t.Fatalf("size flush inside explicit block: %v", rec.texts())
	}
	p.FinishBlock()

	want := [][]string{{"a"}, {"b", "c", "d", "e"}}
	if got := rec.texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestFlushAlwaysDrains(t *testing.T) {
	p, rec := newProc(t, 5, Options{})
	p.StartBlock()
	p.FinishBlock()
	if len(rec.blocks) != 0 {
		t.Fatalf("empty explicit block produced %v", rec.texts())
	}
	if rec.drains != 2 {
		t.Fatalf("want 2 drains, got %d", rec.drains)
	}
}

func TestClose_FlushesPendingOnce(t *testing.T) {
	p, rec := newProc(t, 5, Options{})
	p.Process(cmd("x"))
	p.Process(cmd("y"))
	p.Close()
	want := [][]string{{"x", "y"}}
	if got := rec.texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
}

func TestClose_AbandonsOpenBlock(t *testing.T) {
	var logs bytes.Buffer
	logging.Configure(logging.Options{Level: "warn", Writer: &logs})
	defer logging.Configure(logging.Options{})

	p, rec := newProc(t, 5, Options{})
	p.StartBlock()
	p.Process(cmd("x"))
	p.Process(cmd("y"))
	p.Close()
	if len(rec.blocks) != 0 {
		t.Fatalf("open block flushed on close: %v", rec.texts())
	}
	if p.Pending() != 0 {
		t.Fatalf("pending not cleared: %d", p.Pending())
	}
	if !strings.Contains(logs.String(), "dropping unterminated block") || !strings.Contains(logs.String(), "commands=2") {
		t.Fatalf("drop not reported: %q", logs.String())
	}
}

func TestClose_FlushOpenBlockOption(t *testing.T) {
	p, rec := newProc(t, 5, Options{FlushOpenBlock: true})
	p.StartBlock()
	p.Process(cmd("x"))
	p.Close()
	want := [][]string{{"x"}}
	if got := rec.texts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	if p.Forced() {
		t.Fatal("processor still forced after close")
	}
}
