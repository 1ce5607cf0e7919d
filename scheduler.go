package rxfn

import (
	"container/heap"
	"fmt"
	"sync"
	"time"
)

// Scheduler decides when scheduled work runs.
//
// Every Scheduler guarantees that a task due at T never runs before a task
// due earlier than T, and that tasks with the same due time run in the order
// they were scheduled.
type Scheduler interface {
	// Now returns the scheduler's notion of the current time.
	Now() time.Time

	// Schedule runs task once delay has elapsed. Unsubscribing the returned
	// handle before the task started cancels it. A non-positive delay means
	// "as soon as possible", never synchronously.
	Schedule(delay time.Duration, task func()) *Subscription
}

var defaultAsync = sync.OnceValue(func() *AsyncScheduler {
	return NewAsyncScheduler()
})

// DefaultScheduler returns the scheduler configured with WithDefaultScheduler,
// or a process-wide AsyncScheduler started on first use.
func DefaultScheduler() Scheduler {
	if s := settings().scheduler; s != nil {
		return s
	}

	return defaultAsync()
}

func resolveScheduler(s Scheduler) Scheduler {
	if s != nil {
		return s
	}

	return DefaultScheduler()
}

// schedulePeriodic runs task after delay and then every period until the
// returned subscription is unsubscribed.
func schedulePeriodic(sched Scheduler, delay, period time.Duration, task func()) *Subscription {
	sub := NewSubscription()

	var (
		mu      sync.Mutex
		pending *Subscription
		tick    func()
	)
	tick = func() {
		task()

		mu.Lock()
		defer mu.Unlock()
		if sub.Closed() {
			return
		}
		pending = sched.Schedule(period, tick)
	}

	mu.Lock()
	pending = sched.Schedule(delay, tick)
	mu.Unlock()

	sub.Add(func() {
		mu.Lock()
		p := pending
		mu.Unlock()
		p.Unsubscribe()
	})

	return sub
}

type scheduledTask struct {
	due    time.Time
	seq    uint64
	task   func()
	handle *Subscription
	index  int
}

// taskQueue is a min-heap ordered by (due, seq).
type taskQueue []*scheduledTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}

	return q[i].due.Before(q[j].due)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*scheduledTask)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]

	return t
}

// remove drops t if it is still queued.
func (q *taskQueue) remove(t *scheduledTask) {
	if t.index < 0 || t.index >= len(*q) || (*q)[t.index] != t {
		return
	}
	heap.Remove(q, t.index)
}

func (q taskQueue) peek() *scheduledTask {
	if len(q) == 0 {
		return nil
	}

	return q[0]
}

func runTask(t *scheduledTask) {
	if t.handle.Closed() {
		return
	}
	if err := protect(t.task); err != nil {
		reportUnhandled(fmt.Errorf("scheduled task: %w", err))
	}
}

// AsyncScheduler runs tasks in real time on a single event-loop goroutine.
//
// All tasks of one AsyncScheduler are serialized, which makes it the natural
// home for time-based operators: their callbacks never run concurrently with
// each other.
type AsyncScheduler struct {
	mu     sync.Mutex
	queue  taskQueue
	seq    uint64
	closed bool

	wake chan struct{}
	done chan struct{}
}

// Compile-time assertion that AsyncScheduler implements Scheduler.
var _ Scheduler = (*AsyncScheduler)(nil)

// NewAsyncScheduler starts a new event loop. Call Close to stop it.
func NewAsyncScheduler() *AsyncScheduler {
	s := &AsyncScheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.loop()

	return s
}

// Now returns time.Now().
func (s *AsyncScheduler) Now() time.Time {
	return time.Now()
}

// Schedule queues task on the event loop.
//
// Scheduling on a closed AsyncScheduler reports ErrSchedulerClosed as an
// unhandled error and returns an already closed handle.
func (s *AsyncScheduler) Schedule(delay time.Duration, task func()) *Subscription {
	handle := NewSubscription()
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		handle.Unsubscribe()
		reportUnhandled(fmt.Errorf("schedule: %w", ErrSchedulerClosed))

		return handle
	}
	s.seq++
	t := &scheduledTask{
		due:    time.Now().Add(delay),
		seq:    s.seq,
		task:   task,
		handle: handle,
	}
	heap.Push(&s.queue, t)
	s.mu.Unlock()

	handle.Add(func() {
		s.mu.Lock()
		s.queue.remove(t)
		s.mu.Unlock()
	})

	select {
	case s.wake <- struct{}{}:
	default:
	}

	return handle
}

// Pending returns the number of queued tasks.
func (s *AsyncScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue)
}

// Close stops the event loop. Pending tasks are dropped.
func (s *AsyncScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.queue = nil
	close(s.done)
}

func (s *AsyncScheduler) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		s.mu.Lock()
		now := time.Now()
		var due []*scheduledTask
		for next := s.queue.peek(); next != nil && !next.due.After(now); next = s.queue.peek() {
			due = append(due, heap.Pop(&s.queue).(*scheduledTask))
		}
		wait := time.Duration(-1)
		if next := s.queue.peek(); next != nil {
			wait = next.due.Sub(now)
		}
		s.mu.Unlock()

		if len(due) > 0 {
			for _, t := range due {
				runTask(t)
			}
			continue
		}

		if wait >= 0 {
			timer.Reset(wait)
		}
		select {
		case <-s.wake:
		case <-timer.C:
		case <-s.done:
			return
		}
		timer.Stop()
	}
}

// VirtualScheduler is a deterministic Scheduler driven by the caller.
//
// Time only moves when AdvanceBy, AdvanceTo or Flush is called, and tasks run
// on the goroutine that moved it. It is the scheduler to use in tests.
type VirtualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	queue taskQueue
}

// Compile-time assertion that VirtualScheduler implements Scheduler.
var _ Scheduler = (*VirtualScheduler)(nil)

// NewVirtualScheduler returns a VirtualScheduler whose clock starts at start.
func NewVirtualScheduler(start time.Time) *VirtualScheduler {
	return &VirtualScheduler{now: start}
}

// Now returns the virtual clock.
func (v *VirtualScheduler) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.now
}

// Schedule queues task at Now()+delay.
func (v *VirtualScheduler) Schedule(delay time.Duration, task func()) *Subscription {
	handle := NewSubscription()
	if delay < 0 {
		delay = 0
	}

	v.mu.Lock()
	v.seq++
	t := &scheduledTask{
		due:    v.now.Add(delay),
		seq:    v.seq,
		task:   task,
		handle: handle,
	}
	heap.Push(&v.queue, t)
	v.mu.Unlock()

	handle.Add(func() {
		v.mu.Lock()
		v.queue.remove(t)
		v.mu.Unlock()
	})

	return handle
}

// AdvanceBy moves the clock forward by d, running every task that becomes due.
func (v *VirtualScheduler) AdvanceBy(d time.Duration) {
	v.AdvanceTo(v.Now().Add(d))
}

// AdvanceTo moves the clock to t, running every task due at or before t in
// due-time order. Tasks scheduled by running tasks are honoured if they fall
// within t.
func (v *VirtualScheduler) AdvanceTo(t time.Time) {
	for {
		v.mu.Lock()
		next := v.queue.peek()
		if next == nil || next.due.After(t) {
			if t.After(v.now) {
				v.now = t
			}
			v.mu.Unlock()
			return
		}
		heap.Pop(&v.queue)
		if next.due.After(v.now) {
			v.now = next.due
		}
		v.mu.Unlock()

		runTask(next)
	}
}

// Flush runs tasks until none is left, moving the clock as needed. Flush
// never returns while a periodic source is still subscribed; use AdvanceBy
// for those.
func (v *VirtualScheduler) Flush() {
	for {
		v.mu.Lock()
		next := v.queue.peek()
		v.mu.Unlock()
		if next == nil {
			return
		}
		v.AdvanceTo(next.due)
	}
}

// Pending returns the number of queued tasks.
func (v *VirtualScheduler) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return len(v.queue)
}
