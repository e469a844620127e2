// Package console provides the sinks a target run writes its output to.
package console

import (
	"fmt"
	"io"
	"sync"
)

// Sink receives build output one line at a time.
// Implementations must be safe for concurrent use.
type Sink interface {
	WriteLine(line string)
	Clear()
}

// Printf formats and writes a single line to sink.
func Printf(sink Sink, format string, args ...any) {
	sink.WriteLine(fmt.Sprintf(format, args...))
}

// Writer is a Sink printing each line to an io.Writer.
// Clear is a no-op since written output cannot be taken back.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Sink printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (c *Writer) WriteLine(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, line+"\n")
}

func (c *Writer) Clear() {}

// Tee fans lines out to several sinks in order.
type Tee []Sink

// NewTee drops nil sinks.
func NewTee(sinks ...Sink) Tee {
	out := make(Tee, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (t Tee) WriteLine(line string) {
	for _, s := range t {
		s.WriteLine(line)
	}
}

func (t Tee) Clear() {
	for _, s := range t {
		s.Clear()
	}
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) WriteLine(string) {}
func (discard) Clear()           {}
