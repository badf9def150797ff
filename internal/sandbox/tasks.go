package sandbox

// taskTracker counts async work started by a script so the run can wait for
// it before merging. It is only touched from the event loop goroutine.
//
// Tasks are tracked while monitoring is on, and also while any tracked task is
// still pending, so work spawned from a tracked callback is waited for too.
type taskTracker struct {
	monitoring bool
	pending    int
	waiters    []func()
}

// reset starts monitoring from a clean slate.
func (t *taskTracker) reset() {
	t.monitoring = true
	t.pending = 0
	t.waiters = nil
}

// stop ends monitoring. Pending tasks still settle normally.
func (t *taskTracker) stop() {
	t.monitoring = false
}

// add registers a task and returns its completion func, which is idempotent.
func (t *taskTracker) add() func() {
	if !t.monitoring && t.pending == 0 {
		return func() {}
	}
	t.pending++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		t.pending--
		if t.pending == 0 {
			t.flush()
		}
	}
}

// whenSettled calls fn once no tasks are pending.
func (t *taskTracker) whenSettled(fn func()) {
	if t.pending == 0 {
		fn()
		return
	}
	t.waiters = append(t.waiters, fn)
}

func (t *taskTracker) flush() {
	waiters := t.waiters
	t.waiters = nil
	for _, fn := range waiters {
		fn()
	}
}
