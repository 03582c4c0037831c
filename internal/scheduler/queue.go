package scheduler

import (
	"context"
	"time"
)

type entry struct {
	id  int64
	at  time.Time
	job Job

	// index is the heap position, or -1 once the job has left the queue.
	index  int
	cancel context.CancelFunc
}

// jobQueue is a min-heap on due time. Ties keep ids in ascending order so
// records created together go out in creation order.
type jobQueue []*entry

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].id < q[j].id
	}
	return q[i].at.Before(q[j].at)
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}
