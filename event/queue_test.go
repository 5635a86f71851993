package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/tilt-alarm/parameter"
)

func TestTiltQueueFIFO(t *testing.T) {
	q := NewTiltQueue()
	assert.Nil(t, q.Consume())

	for i := 0; i < 10; i++ {
		q.Push(TiltSample{X: float64(i), Y: -0.5})
	}
	assert.Equal(t, 10, q.Len())

	got := q.Consume()
	require.Len(t, got, 10)
	for i, s := range got {
		assert.Equal(t, float64(i), s.X)
		assert.Equal(t, -0.5, s.Y)
	}
	assert.Zero(t, q.Len())
	assert.Nil(t, q.Consume())
	assert.Zero(t, q.Dropped())
}

func TestTiltQueueOverflowDropsOldest(t *testing.T) {
	q := NewTiltQueue()
	extra := 100
	total := parameter.TiltQueueSize + extra
	for i := 0; i < total; i++ {
		q.Push(TiltSample{X: float64(i)})
	}
	assert.Equal(t, parameter.TiltQueueSize, q.Len())

	got := q.Consume()
	require.Len(t, got, parameter.TiltQueueSize)
	assert.Equal(t, float64(extra), got[0].X)
	assert.Equal(t, float64(total-1), got[len(got)-1].X)
	assert.Equal(t, uint64(extra), q.Dropped())
	assert.Zero(t, q.Dropped(), "Dropped resets")
}

func TestTiltQueuePreservesPerProducerOrder(t *testing.T) {
	q := NewTiltQueue()
	const producers = 4
	const perProducer = 5000

	last := make([]float64, producers)
	for i := range last {
		last[i] = -1
	}
	received := 0

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(TiltSample{X: float64(i), Y: float64(id)})
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	check := func(batch []TiltSample) {
		for _, s := range batch {
			id := int(s.Y)
			require.Greater(t, s.X, last[id], "producer %d reordered", id)
			last[id] = s.X
			received++
		}
	}

	for {
		select {
		case <-done:
			// Drain whatever was published after the last poll
			for {
				batch := q.Consume()
				if batch == nil {
					break
				}
				check(batch)
			}
			dropped := q.Dropped()
			assert.Equal(t, producers*perProducer, received+int(dropped))
			return
		default:
			check(q.Consume())
		}
	}
}

func TestTiltQueueReadySignal(t *testing.T) {
	q := NewTiltQueue()
	select {
	case <-q.Ready():
		t.Fatal("ready before any push")
	default:
	}

	q.Push(TiltSample{X: 1})
	q.Push(TiltSample{X: 2})
	select {
	case <-q.Ready():
	default:
		t.Fatal("push did not signal")
	}
	assert.Len(t, q.Consume(), 2)
}

func TestControlConstructors(t *testing.T) {
	c := Cancel("abc")
	assert.Equal(t, TypeCancel, c.Type)
	assert.Equal(t, "abc", c.AlarmID)
	assert.Equal(t, "cancel", c.Type.String())

	a := AnswerIndex(2)
	assert.Equal(t, TypeQuizAnswerIndex, a.Type)
	assert.Equal(t, 2, a.Index)
	assert.Equal(t, "quiz_answer", Answer("x").Type.String())
}
