// Package bulk holds the value types that flow through the batching
// pipeline: single commands and the blocks they are grouped into.
package bulk

import (
	"strings"
	"time"
)

const (
	Prefix    = "bulk: "
	Separator = ", "

	StartMarker = "{"
	EndMarker   = "}"
)

// Command is one line of input stamped with its arrival time.
type Command struct {
	Text string
	Time time.Time
}

// Block is a group of commands emitted to the sinks as one unit.
// Time is the timestamp of the first command.
type Block struct {
	Time     time.Time
	Commands []Command
}

// NewBlock copies cmds so the caller may reuse its accumulator.
func NewBlock(cmds []Command) Block {
	out := make([]Command, len(cmds))
	copy(out, cmds)
	var ts time.Time
	if len(out) > 0 {
		ts = out[0].Time
	}
	return Block{Time: ts, Commands: out}
}

func (b Block) Len() int { return len(b.Commands) }

// Texts returns the command texts in order.
func (b Block) Texts() []string {
	out := make([]string, len(b.Commands))
	for i, c := range b.Commands {
		out[i] = c.Text
	}
	return out
}

// Render formats the block as "bulk: a, b, c".
func Render(b Block) string {
	return Prefix + strings.Join(b.Texts(), Separator)
}
