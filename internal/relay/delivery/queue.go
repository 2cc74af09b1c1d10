package delivery

import (
	"container/heap"

	"github.com/dmitrijs2005/filegate/internal/relay/models"
)

// taskQueue is a min-heap of cleanup tasks ordered by FireAt.
type taskQueue []*models.CleanupTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].FireAt.Equal(q[j].FireAt) {
		return q[i].ID < q[j].ID
	}
	return q[i].FireAt.Before(q[j].FireAt)
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*models.CleanupTask)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

func (q *taskQueue) push(t *models.CleanupTask) { heap.Push(q, t) }

func (q *taskQueue) peek() *models.CleanupTask {
	if len(*q) == 0 {
		return nil
	}
	return (*q)[0]
}

func (q *taskQueue) pop() *models.CleanupTask { return heap.Pop(q).(*models.CleanupTask) }
