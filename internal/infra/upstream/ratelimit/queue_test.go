package ratelimit

import (
	"testing"
	"time"
)

func TestTaskQueue_PriorityThenFIFO(t *testing.T) {
	now := time.Now()
	var q taskQueue

	q.push(&task{priority: 0, enqueuedAt: now})
	q.push(&task{priority: 5, enqueuedAt: now.Add(2 * time.Millisecond)})
	q.push(&task{priority: 5, enqueuedAt: now.Add(1 * time.Millisecond)})
	q.push(&task{priority: 1, enqueuedAt: now})

	order := []struct {
		priority   int
		enqueuedAt time.Time
	}{
		{5, now.Add(1 * time.Millisecond)},
		{5, now.Add(2 * time.Millisecond)},
		{1, now},
		{0, now},
	}

	for i, want := range order {
		got := q.pop()
		if got == nil {
			t.Fatalf("pop %d returned nil", i)
		}
		if got.priority != want.priority || !got.enqueuedAt.Equal(want.enqueuedAt) {
			t.Errorf("pop %d: got priority=%d at=%v, want priority=%d at=%v",
				i, got.priority, got.enqueuedAt, want.priority, want.enqueuedAt)
		}
	}

	if q.pop() != nil {
		t.Error("pop on empty queue should return nil")
	}
}
