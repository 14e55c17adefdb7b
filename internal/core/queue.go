package core

import "sort"

// pushOutcome reports what a bounded push did with the incoming message.
type pushOutcome int

const (
	pushAccepted  pushOutcome = iota
	pushDisplaced             // accepted after dropping the lowest-priority entry
	pushRejected              // queue full of equal-or-more-urgent messages
)

// pendingQueue holds messages awaiting the next flush tick, ordered by
// descending priority. Insertion is stable so arrival order is preserved
// within a priority level. The queue is bounded: when full, a new message
// displaces the least urgent queued one only if strictly more urgent,
// otherwise it is rejected.
type pendingQueue struct {
	items []Message
	max   int
}

func newPendingQueue(max int) *pendingQueue {
	return &pendingQueue{max: max}
}

func (q *pendingQueue) push(msg Message) pushOutcome {
	if q.max > 0 && len(q.items) >= q.max {
		tail := q.items[len(q.items)-1]
		if tail.Priority >= msg.Priority {
			return pushRejected
		}
		q.items = q.items[:len(q.items)-1]
		q.insert(msg)
		return pushDisplaced
	}
	q.insert(msg)
	return pushAccepted
}

func (q *pendingQueue) insert(msg Message) {
	// First position with strictly lower priority; equal priorities keep
	// their arrival order.
	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Priority < msg.Priority
	})
	q.items = append(q.items, Message{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = msg
}

// popBatch removes and returns up to n messages from the front.
func (q *pendingQueue) popBatch(n int) []Message {
	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := make([]Message, n)
	copy(batch, q.items[:n])
	rest := copy(q.items, q.items[n:])
	q.items = q.items[:rest]
	return batch
}

func (q *pendingQueue) len() int {
	return len(q.items)
}
