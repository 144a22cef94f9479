package stdin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"bulkd/internal/bulk"
	"bulkd/internal/logging"
	"bulkd/source"
)

const defaultMaxLineBytes = 1 << 20

type Config struct {
	In           io.Reader // nil = os.Stdin
	MaxLineBytes int       // 0 = 1 MiB; longer lines end the stream with bufio.ErrTooLong
}

// driver reads one command per line into a single session. Empty lines are
// skipped. Lines are scanned on their own goroutine so a cancelled context
// ends the session even while the reader is blocked.
type driver struct {
	in      io.Reader
	maxLine int
	now     func() time.Time

	closeOnce sync.Once
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdin-source: expected Config, got %T", raw)
	}
	d.in = c.In
	if d.in == nil {
		d.in = os.Stdin
	}
	d.maxLine = c.MaxLineBytes
	if d.maxLine <= 0 {
		d.maxLine = defaultMaxLineBytes
	}
	return nil
}

func (d *driver) Run(ctx context.Context, open source.Opener) error {
	if d.in == nil {
		return fmt.Errorf("stdin-source: not configured")
	}
	now := d.now
	if now == nil {
		now = time.Now
	}
	sess, err := open()
	if err != nil {
		return err
	}
	defer sess.Close()
	logging.L().Debug("stdin-source: session started", "session", sess.ID())

	stop := make(chan struct{})
	defer close(stop)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(d.in)
		sc.Buffer(make([]byte, 0, min(bufio.MaxScanTokenSize, d.maxLine)), d.maxLine)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-stop:
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if line == "" {
				continue
			}
			sess.Handle(bulk.Command{Text: line, Time: now()})
		}
	}
}

// Close releases a reader blocked in Read when it can be closed.
func (d *driver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if c, ok := d.in.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

func init() { source.Register("stdin", func() source.Adapter { return &driver{} }) }
