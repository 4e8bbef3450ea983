package commandcapture

import (
	"bytes"
	"slices"
	"sync"

	"github.com/sa6mwa/vdrun/port"
)

// capture implements port.CommandCapture. Every complete line is handed to
// the sink as soon as it is written; the full byte stream is kept for the
// final result.
type capture struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	partial []byte
	sink    func(line string)
}

// New constructs a port.CommandCapture that reports lines to sink. A nil sink
// only aggregates.
func New(sink func(line string)) port.CommandCapture {
	c := &capture{sink: sink}
	c.buf.Grow(128)
	return c
}

func (c *capture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(p)
	c.partial = append(c.partial, p...)
	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		c.emit(c.partial[:i])
		c.partial = c.partial[i+1:]
	}
	if len(c.partial) == 0 {
		c.partial = nil
	}
	return len(p), nil
}

func (c *capture) emit(line []byte) {
	if c.sink == nil {
		return
	}
	c.sink(string(bytes.TrimSuffix(line, []byte{'\r'})))
}

func (c *capture) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.partial) > 0 {
		c.emit(c.partial)
		c.partial = nil
	}
}

func (c *capture) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.buf.Bytes())
}
