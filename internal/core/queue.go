package core

import "sort"

// taskQueue is the scheduler's live collection. Tasks are kept in insertion
// order, which is also the persisted order; priority order is produced on
// demand. At the sizes a single user keeps, a slice with an explicit sort
// covers pop-max, ordered enumeration and lookup by name.
type taskQueue struct {
	items []*Task
}

func (q *taskQueue) Len() int { return len(q.items) }

func (q *taskQueue) Push(t *Task) {
	q.items = append(q.items, t)
}

// Items returns the tasks in insertion order.
func (q *taskQueue) Items() []*Task {
	out := make([]*Task, len(q.items))
	copy(out, q.items)
	return out
}

// Ordered returns the tasks by descending priority. Equal priorities keep
// insertion order.
func (q *taskQueue) Ordered() []*Task {
	out := q.Items()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}

// Peek returns the highest-priority task without removing it.
func (q *taskQueue) Peek() *Task {
	if i := q.maxIndex(); i >= 0 {
		return q.items[i]
	}
	return nil
}

// PopMax removes and returns the highest-priority task, or nil.
func (q *taskQueue) PopMax() *Task {
	i := q.maxIndex()
	if i < 0 {
		return nil
	}
	return q.RemoveAt(i)
}

func (q *taskQueue) maxIndex() int {
	best := -1
	for i, t := range q.items {
		if best < 0 || t.Before(q.items[best]) {
			best = i
		}
	}
	return best
}

// IndexOf returns the index of the first task named name in scan order,
// or -1.
func (q *taskQueue) IndexOf(name string) int {
	for i, t := range q.items {
		if t.name == name {
			return i
		}
	}
	return -1
}

// RemoveAt removes the task at index i.
func (q *taskQueue) RemoveAt(i int) *Task {
	t := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return t
}

// InsertAt puts t back at index i. It is used to undo a removal whose
// persistence failed.
func (q *taskQueue) InsertAt(i int, t *Task) {
	if i >= len(q.items) {
		q.items = append(q.items, t)
		return
	}
	q.items = append(q.items[:i], append([]*Task{t}, q.items[i:]...)...)
}

// RemoveAll drops every task named name and returns them.
func (q *taskQueue) RemoveAll(name string) []*Task {
	var removed []*Task
	kept := q.items[:0]
	for _, t := range q.items {
		if t.name == name {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	q.items = kept
	return removed
}

// Replace swaps the whole collection.
func (q *taskQueue) Replace(items []*Task) {
	q.items = items
}
