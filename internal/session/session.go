// Package session routes one input stream into its batch processor,
// translating "{" and "}" markers into explicit block boundaries.
package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"bulkd/internal/bulk"
	"bulkd/internal/logging"
	"bulkd/internal/processor"
	"bulkd/internal/telemetry"
)

// Session owns one Processor. Handle and Close must be called from a single
// goroutine.
type Session struct {
	id    string
	proc  *processor.Processor
	depth int
	done  bool
}

func New(threshold int, out processor.Emitter, opts processor.Options) (*Session, error) {
	p, err := processor.New(threshold, out, opts)
	if err != nil {
		return nil, err
	}
	s := &Session{id: uuid.NewString(), proc: p}
	telemetry.SessionsActive.Inc()
	logging.L().Debug("session opened", "session", s.id, "threshold", threshold)
	return s, nil
}

func (s *Session) ID() string { return s.id }

// Depth is the current explicit block nesting level.
func (s *Session) Depth() int { return s.depth }

// Handle routes one command. Only the outermost markers open and close an
// explicit block; a "}" with no open block is ignored.
func (s *Session) Handle(cmd bulk.Command) {
	if s.done {
		return
	}
	switch cmd.Text {
	case bulk.StartMarker:
		s.depth++
		if s.depth == 1 {
			s.proc.StartBlock()
		}
	case bulk.EndMarker:
		if s.depth == 0 {
			logging.L().Debug("session: unbalanced block end ignored", "session", s.id)
			return
		}
		s.depth--
		if s.depth == 0 {
			s.proc.FinishBlock()
		}
	default:
		s.proc.Process(cmd)
	}
}

// Receive splits raw input on newlines and handles every non-empty line as a
// command stamped with now.
func (s *Session) Receive(data string, now time.Time) {
	for _, line := range strings.Split(data, "\n") {
		if line == "" {
			continue
		}
		s.Handle(bulk.Command{Text: line, Time: now})
	}
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() {
	if s.done {
		return
	}
	s.done = true
	if s.depth > 0 {
		logging.L().Warn("session closed inside explicit block", "session", s.id, "depth", s.depth)
	}
	s.proc.Close()
	telemetry.SessionsActive.Dec()
	logging.L().Debug("session closed", "session", s.id)
}
