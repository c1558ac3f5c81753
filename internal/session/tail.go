package session

import "sync"

// tailSize bounds how much recorder output is kept per stream.
const tailSize = 64 << 10

// tailBuffer is a thread-safe circular byte buffer that keeps the most
// recent output of a child process.
type tailBuffer struct {
	data  []byte
	head  int // next write position
	count int // valid bytes, up to capacity
	mu    sync.RWMutex
}

func newTailBuffer(capacity int) *tailBuffer {
	return &tailBuffer{data: make([]byte, capacity)}
}

// Write appends p, overwriting the oldest bytes when full. It never fails.
func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.data)

	// only the last capacity bytes can survive
	if len(p) > capacity {
		p = p[len(p)-capacity:]
	}

	for _, c := range p {
		b.data[b.head] = c
		b.head = (b.head + 1) % capacity

		if b.count < capacity {
			b.count++
		}
	}

	return n, nil
}

// String returns the buffered bytes in the order they were written.
func (b *tailBuffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.count == 0 {
		return ""
	}

	capacity := len(b.data)
	start := (b.head - b.count + capacity) % capacity

	out := make([]byte, b.count)
	for i := range b.count {
		out[i] = b.data[(start+i)%capacity]
	}

	return string(out)
}

// Len returns the number of buffered bytes.
func (b *tailBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.count
}
