package portals

import (
	"container/heap"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
)

// Task states.
const (
	taskPending int32 = iota
	taskCancelled
	taskDone
)

// scheduledTask is one deferred callback.
type scheduledTask struct {
	at     uint64 // tick to run on
	seq    uint64 // breaks ties between tasks due on the same tick
	fn     func()
	owners []EntityID
	state  atomic.Int32
	index  int // position in the heap, -1 once removed
}

// taskHeap orders tasks by tick, then by scheduling order.
type taskHeap []*scheduledTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *taskHeap) Push(x any) {
	t := x.(*scheduledTask)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old) - 1
	t := old[n]
	old[n] = nil
	t.index = -1
	*h = old[:n]
	return t
}

// taskQueue holds the deferred work of an Engine. Tasks are indexed by the
// entities they act on so deleting an entity cancels its work in one call.
type taskQueue struct {
	mu        sync.Mutex
	tasks     taskHeap
	seq       uint64
	cancelled int // cancelled tasks still in the heap
	owned     map[EntityID][]*scheduledTask
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		tasks: make(taskHeap, 0, 64),
		owned: make(map[EntityID][]*scheduledTask),
	}
}

// prune drops cancelled tasks once they make up most of a large heap.
// Caller must hold the lock.
func (q *taskQueue) prune() {
	if len(q.tasks) < 64 || q.cancelled*2 <= len(q.tasks) {
		return
	}
	live := q.tasks[:0]
	for _, t := range q.tasks {
		if t.state.Load() != taskPending {
			t.index = -1
			continue
		}
		t.index = len(live)
		live = append(live, t)
	}
	clear(q.tasks[len(live):])
	q.tasks = live
	q.cancelled = 0
	heap.Init(&q.tasks)
}

// Schedule adds fn to run delay ticks after now. Delays below one run on
// the next tick.
func (q *taskQueue) Schedule(now uint64, delay int, fn func(), owners ...EntityID) *TaskHandle {
	if fn == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prune()

	q.seq++
	t := &scheduledTask{
		at:     now + uint64(max(delay, 1)),
		seq:    q.seq,
		fn:     fn,
		owners: owners,
	}
	heap.Push(&q.tasks, t)
	for _, o := range owners {
		q.owned[o] = append(slices.DeleteFunc(q.owned[o], (*scheduledTask).finished), t)
	}
	return &TaskHandle{task: t, queue: q}
}

// finished reports whether t can no longer run.
func (t *scheduledTask) finished() bool {
	return t.state.Load() != taskPending
}

// cancel stops t from running. Caller must hold the lock.
func (q *taskQueue) cancel(t *scheduledTask) bool {
	if !t.state.CompareAndSwap(taskPending, taskCancelled) {
		return false
	}
	if t.index >= 0 {
		q.cancelled++
	}
	return true
}

// PopDue removes the tasks scheduled for now or earlier and returns the ones
// that were not cancelled, in run order.
func (q *taskQueue) PopDue(now uint64) []*scheduledTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*scheduledTask
	for len(q.tasks) > 0 && q.tasks[0].at <= now {
		t := heap.Pop(&q.tasks).(*scheduledTask)
		if t.state.Load() == taskCancelled {
			q.cancelled--
			continue
		}
		due = append(due, t)
	}
	return due
}

// CancelOwned cancels every pending task owned by id and returns how many
// were cancelled.
func (q *taskQueue) CancelOwned(id EntityID) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, t := range q.owned[id] {
		if q.cancel(t) {
			n++
		}
	}
	delete(q.owned, id)
	return n
}

// Len returns the number of tasks in the heap, cancelled ones included.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Pending returns the number of tasks that will still run.
func (q *taskQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks) - q.cancelled
}

// Clear drops every task.
func (q *taskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.tasks {
		t.state.CompareAndSwap(taskPending, taskCancelled)
		t.index = -1
	}
	clear(q.tasks)
	q.tasks = q.tasks[:0]
	q.cancelled = 0
	clear(q.owned)
}

// run executes the due tasks of tick now. A task cancelled by one that ran
// before it in the same tick is skipped. Panics are logged and do not stop
// the tasks after it.
func (q *taskQueue) run(now uint64, log *slog.Logger) {
	for _, t := range q.PopDue(now) {
		if !t.state.CompareAndSwap(taskPending, taskDone) {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("portals: task panicked", "tick", now, "panic", r, "stack", string(debug.Stack()))
				}
			}()
			t.fn()
		}()
	}
}

// TaskHandle refers to a scheduled task. The zero and nil handles are inert.
type TaskHandle struct {
	task  *scheduledTask
	queue *taskQueue
}

// Cancel stops the task if it has not run yet.
func (h *TaskHandle) Cancel() {
	if h == nil || h.task == nil {
		return
	}
	h.queue.mu.Lock()
	defer h.queue.mu.Unlock()
	h.queue.cancel(h.task)
}

// Cancelled reports whether the task was cancelled.
func (h *TaskHandle) Cancelled() bool {
	return h != nil && h.task != nil && h.task.state.Load() == taskCancelled
}

// Pending reports whether the task is still waiting to run.
func (h *TaskHandle) Pending() bool {
	return h != nil && h.task != nil && h.task.state.Load() == taskPending
}
