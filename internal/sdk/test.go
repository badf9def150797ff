package sdk

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/scripting/internal/shared/types"
)

// CategoryFor maps a request event name to the category recorded with tests.
func CategoryFor(eventName string) types.TestCategory {
	switch eventName {
	case "prerequest":
		return types.CategoryPreRequest
	case "test", "afterResponse":
		return types.CategoryAfterResponse
	default:
		return types.CategoryUnknown
	}
}

// TestRecorder accumulates test results for one script run, in the order
// the tests finish.
type TestRecorder struct {
	mu       sync.Mutex
	category types.TestCategory
	results  []types.RequestTestResult
	now      func() time.Time
}

func NewTestRecorder(category types.TestCategory) *TestRecorder {
	if category == "" {
		category = types.CategoryUnknown
	}
	return &TestRecorder{category: category, now: time.Now}
}

// TestCase is a started test awaiting its outcome.
type TestCase struct {
	recorder *TestRecorder
	name     string
	started  time.Time
	once     sync.Once
}

// Begin starts timing a test.
func (r *TestRecorder) Begin(name string) *TestCase {
	return &TestCase{recorder: r, name: name, started: r.now()}
}

// Finish records the test as passed, or failed with err's message. Only the
// first call has an effect.
func (c *TestCase) Finish(err error) {
	c.once.Do(func() {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		c.FinishWithMessage(err != nil, msg)
	})
}

// FinishWithMessage records a failure carrying msg when failed is true.
func (c *TestCase) FinishWithMessage(failed bool, msg string) {
	elapsed := float64(c.recorder.now().Sub(c.started)) / float64(time.Millisecond)
	result := types.RequestTestResult{
		TestCase:      c.name,
		Status:        types.TestPassed,
		ExecutionTime: elapsed,
		Category:      c.recorder.category,
	}
	if failed {
		result.Status = types.TestFailed
		result.ErrorMessage = msg
	}
	c.recorder.push(result)
}

// Skip records a skipped test without running it.
func (r *TestRecorder) Skip(name string) {
	r.push(types.RequestTestResult{
		TestCase:      name,
		Status:        types.TestSkipped,
		ExecutionTime: 0,
		Category:      r.category,
	})
}

func (r *TestRecorder) push(result types.RequestTestResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// Results returns a copy of the recorded results.
func (r *TestRecorder) Results() []types.RequestTestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.RequestTestResult{}, r.results...)
}

// Test runs fn synchronously and records its outcome. A failing fn does not
// stop the caller.
func Test(r *TestRecorder, name string, fn func() error) {
	c := r.Begin(name)
	c.Finish(fn())
}
