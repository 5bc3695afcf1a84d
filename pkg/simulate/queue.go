package simulate

import (
	"container/heap"

	"github.com/ritzau/meshchurn/pkg/topology"
)

// restore is a link scheduled to come back up.
type restore struct {
	at   float64
	seq  int // insertion order, breaks ties between equal times
	edge topology.Edge
}

// restoreQueue is a min-heap of restorations ordered by time.
type restoreQueue []restore

func (q restoreQueue) Len() int { return len(q) }

func (q restoreQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q restoreQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *restoreQueue) Push(x any) { *q = append(*q, x.(restore)) }

func (q *restoreQueue) Pop() any {
	old := *q
	n := len(old)
	r := old[n-1]
	*q = old[:n-1]
	return r
}

// schedule queues e to be restored at time at.
func (q *restoreQueue) schedule(at float64, e topology.Edge, seq int) {
	heap.Push(q, restore{at: at, seq: seq, edge: e})
}

// due pops the earliest restoration if it is at or before now and strictly
// before horizon.
func (q *restoreQueue) due(now, horizon float64) (restore, bool) {
	if q.Len() == 0 {
		return restore{}, false
	}
	next := (*q)[0]
	if next.at > now || next.at >= horizon {
		return restore{}, false
	}
	return heap.Pop(q).(restore), true
}
