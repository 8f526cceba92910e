package cache

// Buffer is a caller-owned scratch structure reused across calls to
// GetBatchBuffered to avoid per-call allocation of the keys/indices
// sequences.
type Buffer struct {
	Keys    []string
	Indices []int
}

// NewBuffer allocates a Buffer with the given starting capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Keys:    make([]string, 0, capacity),
		Indices: make([]int, 0, capacity),
	}
}

// Reset clears the buffer for reuse, retaining its backing arrays.
func (b *Buffer) Reset() {
	b.Keys = b.Keys[:0]
	b.Indices = b.Indices[:0]
}

func (b *Buffer) add(index int, key string) {
	b.Keys = append(b.Keys, key)
	b.Indices = append(b.Indices, index)
}
