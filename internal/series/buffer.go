// Package series implements the fixed-capacity rolling window both console
// charts are built on.
package series

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alanyoungcy/polyconsole/internal/domain"
)

// ErrChannelMismatch is returned by Append when the number of values does not
// match the buffer's channel count.
var ErrChannelMismatch = errors.New("series: channel count mismatch")

// Frame is a point-in-time copy of a buffer, oldest entry first. Labels and
// every channel always have the same length.
type Frame struct {
	Labels   []string
	Channels [][]domain.Num
}

// Len returns the number of entries in the frame.
func (f Frame) Len() int {
	return len(f.Labels)
}

// Buffer is a FIFO of labelled samples capped at a fixed capacity. Once full,
// each Append evicts exactly the oldest entry. Storage is a ring so eviction
// never shifts memory.
type Buffer struct {
	mu       sync.RWMutex
	capacity int
	channels int

	labels []string
	values [][]domain.Num
	head   int // index of the oldest entry
	size   int
}

// New creates a buffer holding at most capacity entries of channels values
// each. Non-positive arguments are clamped to 1.
func New(capacity, channels int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}
	if channels <= 0 {
		channels = 1
	}

	values := make([][]domain.Num, capacity)
	for i := range values {
		values[i] = make([]domain.Num, channels)
	}

	return &Buffer{
		capacity: capacity,
		channels: channels,
		labels:   make([]string, capacity),
		values:   values,
	}
}

// Append adds one entry. When the buffer is already full the oldest entry
// (its label and every channel value) is dropped in the same step.
func (b *Buffer) Append(label string, values ...domain.Num) error {
	if len(values) != b.channels {
		return fmt.Errorf("%w: got %d values, want %d", ErrChannelMismatch, len(values), b.channels)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	var idx int
	if b.size < b.capacity {
		idx = (b.head + b.size) % b.capacity
		b.size++
	} else {
		idx = b.head
		b.head = (b.head + 1) % b.capacity
	}

	b.labels[idx] = label
	copy(b.values[idx], values)
	return nil
}

// Len returns the current number of entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Channels returns the number of values per entry.
func (b *Buffer) Channels() int {
	return b.channels
}

// Labels returns a copy of the labels in arrival order.
func (b *Buffer) Labels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.labels[(b.head+i)%b.capacity]
	}
	return out
}

// Channel returns a copy of one channel's values in arrival order. It panics
// if ch is out of range, like a slice index would.
func (b *Buffer) Channel(ch int) []domain.Num {
	if ch < 0 || ch >= b.channels {
		panic(fmt.Sprintf("series: channel %d out of range [0,%d)", ch, b.channels))
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Num, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.values[(b.head+i)%b.capacity][ch]
	}
	return out
}

// Frame returns a consistent copy of all labels and channels.
func (b *Buffer) Frame() Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()

	f := Frame{
		Labels:   make([]string, b.size),
		Channels: make([][]domain.Num, b.channels),
	}
	for ch := range f.Channels {
		f.Channels[ch] = make([]domain.Num, b.size)
	}
	for i := 0; i < b.size; i++ {
		idx := (b.head + i) % b.capacity
		f.Labels[i] = b.labels[idx]
		for ch := 0; ch < b.channels; ch++ {
			f.Channels[ch][i] = b.values[idx][ch]
		}
	}
	return f
}
