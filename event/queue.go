package event

import (
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/tilt-alarm/parameter"
)

// TiltQueue is an MPSC ring buffer for tilt samples
// Thread-Safety:
//   - Push: multiple producers OK, holds the lock for one slot write
//   - Consume: single consumer (dispatcher), copies out under the lock
//
// Overflow: oldest samples overwritten when full, never reordered
type TiltQueue struct {
	mu      sync.Mutex
	samples [parameter.TiltQueueSize]TiltSample
	head    uint64 // Read index
	tail    uint64 // Write index
	pending atomic.Int64
	dropped atomic.Uint64
	notify  chan struct{}
}

func NewTiltQueue() *TiltQueue {
	return &TiltQueue{notify: make(chan struct{}, 1)}
}

// Push appends a sample, overwriting the oldest when full. O(1), never blocks
func (q *TiltQueue) Push(s TiltSample) {
	q.mu.Lock()
	q.samples[q.tail&parameter.TiltBufferMask] = s
	q.tail++
	if q.tail-q.head > parameter.TiltQueueSize {
		q.head = q.tail - parameter.TiltQueueSize
		q.dropped.Add(1)
	}
	q.pending.Store(int64(q.tail - q.head))
	q.mu.Unlock()

	// Wake the consumer; a pending wake already covers this sample
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Consume returns all pending samples in FIFO order and advances head
func (q *TiltQueue) Consume() []TiltSample {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.tail - q.head
	if n == 0 {
		return nil
	}
	result := make([]TiltSample, 0, n)
	for ; q.head < q.tail; q.head++ {
		result = append(result, q.samples[q.head&parameter.TiltBufferMask])
	}
	q.pending.Store(0)
	return result
}

// Ready is signalled after a Push; receivers must then Consume
func (q *TiltQueue) Ready() <-chan struct{} {
	return q.notify
}

// Len returns approximate pending sample count
// Lock-free; used for pre-lock heuristics
func (q *TiltQueue) Len() int {
	return int(q.pending.Load())
}

// Dropped returns and resets the count of overwritten samples
func (q *TiltQueue) Dropped() uint64 {
	return q.dropped.Swap(0)
}
