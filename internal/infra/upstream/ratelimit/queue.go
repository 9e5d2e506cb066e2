package ratelimit

import (
	"container/heap"
	"context"
	"sync/atomic"
	"time"
)

type taskResult struct {
	value any
	err   error
}

// task is a deferred call waiting for an admission slot.
type task struct {
	ctx        context.Context
	fn         func(ctx context.Context) (any, error)
	priority   int
	enqueuedAt time.Time
	result     chan taskResult
	cancelled  atomic.Bool
}

// taskQueue orders tasks by priority descending, then enqueue time ascending
// (FIFO within a priority tier). Implements container/heap.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority > q[j].priority
	}
	return q[i].enqueuedAt.Before(q[j].enqueuedAt)
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

func (q *taskQueue) push(t *task) { heap.Push(q, t) }

func (q *taskQueue) pop() *task {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*task)
}
