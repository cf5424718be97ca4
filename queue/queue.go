// Priority scheduler for moderation cases awaiting human review.
package queue

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/modqueue/triage/cases"
)

var ErrEmptyQueue = errors.New("no cases queued for review")

type entry struct {
	// Scores are stored negated so that min-heap extraction yields the maximum
	// concern score.
	negScore float64
	c        *cases.Case
}

type caseHeap []entry

func (h caseHeap) Len() int { return len(h) }

func (h caseHeap) Less(i, j int) bool {
	if h[i].negScore != h[j].negScore {
		return h[i].negScore < h[j].negScore
	}
	// Equal scores break toward the earlier submission.
	return h[i].c.SubmittedAt.Before(h[j].c.SubmittedAt)
}

func (h caseHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *caseHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *caseHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// CaseQueue holds (score, case) pairs and supports extraction by score or by age.
// All operations are safe for concurrent use; the heap property over negated
// scores holds after every mutation.
type CaseQueue struct {
	mu      sync.Mutex
	entries caseHeap
}

func NewCaseQueue() *CaseQueue {
	return &CaseQueue{}
}

func (q *CaseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *CaseQueue) Push(score float64, c *cases.Case) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.entries, entry{negScore: -score, c: c})
}

// Removes and returns the queued case with the greatest score.
func (q *CaseQueue) PopHighest() (float64, *cases.Case, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return 0, nil, ErrEmptyQueue
	}
	e := heap.Pop(&q.entries).(entry)
	return -e.negScore, e.c, nil
}

// Removes and returns the queued case with the earliest submission timestamp.
// The backing heap is ordered by score only, so this is a linear scan followed
// by a re-heapify; queue sizes are bounded by human review throughput, so the
// O(n) cost is acceptable against maintaining a second time-ordered index.
func (q *CaseQueue) PopOldest() (float64, *cases.Case, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return 0, nil, ErrEmptyQueue
	}
	oldest := 0
	for i, e := range q.entries {
		if e.c.SubmittedAt.Before(q.entries[oldest].c.SubmittedAt) {
			oldest = i
		}
	}
	e := q.entries[oldest]
	q.entries = append(q.entries[:oldest], q.entries[oldest+1:]...)
	heap.Init(&q.entries)
	return -e.negScore, e.c, nil
}

// Drops every queued case matching the predicate and returns how many were
// removed. Used to purge now-moot cases when a user is banned.
func (q *CaseQueue) RemoveWhere(pred func(*cases.Case) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if pred(e.c) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	heap.Init(&q.entries)
	return removed
}
